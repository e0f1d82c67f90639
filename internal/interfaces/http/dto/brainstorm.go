// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"encoding/json"
	"time"

	"slidekit-ai-api/internal/application/deck"
	"slidekit-ai-api/internal/domain/entity"
)

// CreateSessionRequest 创建会话请求
type CreateSessionRequest struct {
	Title string `json:"title" binding:"omitempty,max=256"`
}

// SessionResponse 会话响应
type SessionResponse struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Deck      json.RawMessage `json:"deck,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SessionListResponse 会话列表响应
type SessionListResponse struct {
	Items []*SessionResponse `json:"items"`
}

// TurnResponse 会话轮次响应
type TurnResponse struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Category  string          `json:"category,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// TurnListResponse 会话轮次列表响应
type TurnListResponse struct {
	Items []*TurnResponse `json:"items"`
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Prompt string `json:"prompt" binding:"required"`

	Provider    string   `json:"provider,omitempty"`
	Model       string   `json:"model,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// TurnUsageDTO 单轮 LLM 用量
type TurnUsageDTO struct {
	Provider         string  `json:"provider,omitempty"`
	Model            string  `json:"model,omitempty"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	Temperature      float64 `json:"temperature"`
}

// SavedDeckDTO 命令保存的文稿摘要
type SavedDeckDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Title       string `json:"title"`
	SlideCount  int    `json:"slide_count"`
}

// TurnResultResponse 一轮对话结果响应
type TurnResultResponse struct {
	Category       string          `json:"category"`
	Route          string          `json:"route"`
	Response       string          `json:"response"`
	ClassifierInfo string          `json:"classifier_info,omitempty"`
	Deck           json.RawMessage `json:"deck,omitempty"`
	SavedDeck      *SavedDeckDTO   `json:"saved_deck,omitempty"`
	Usage          *TurnUsageDTO   `json:"usage,omitempty"`
}

// ToSessionResponse 实体转换为会话响应
func ToSessionResponse(s *entity.BrainstormSession) *SessionResponse {
	if s == nil {
		return nil
	}
	return &SessionResponse{
		ID:        s.ID,
		Title:     s.Title,
		Status:    string(s.Status),
		Deck:      s.DeckJSON,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// ToSessionListResponse 实体列表转换为会话列表响应
func ToSessionListResponse(sessions []*entity.BrainstormSession) *SessionListResponse {
	items := make([]*SessionResponse, len(sessions))
	for i, s := range sessions {
		items[i] = ToSessionResponse(s)
		// 列表视图不带完整文稿，避免大载荷
		items[i].Deck = nil
	}
	return &SessionListResponse{Items: items}
}

// ToTurnResponse 实体转换为轮次响应
func ToTurnResponse(t *entity.BrainstormTurn) *TurnResponse {
	if t == nil {
		return nil
	}
	return &TurnResponse{
		ID:        t.ID,
		Role:      string(t.Role),
		Content:   t.Content,
		Category:  t.Category,
		Metadata:  t.Metadata,
		CreatedAt: t.CreatedAt,
	}
}

// ToTurnListResponse 实体列表转换为轮次列表响应
func ToTurnListResponse(turns []*entity.BrainstormTurn) *TurnListResponse {
	items := make([]*TurnResponse, len(turns))
	for i, t := range turns {
		items[i] = ToTurnResponse(t)
	}
	return &TurnListResponse{Items: items}
}

// ToTurnResultResponse 编排结果转换为响应
func ToTurnResultResponse(result *deck.TurnResult, session *entity.BrainstormSession) *TurnResultResponse {
	if result == nil {
		return nil
	}
	resp := &TurnResultResponse{
		Category:       string(result.Category),
		Route:          string(result.Route),
		Response:       result.FinalResponse,
		ClassifierInfo: result.ClassifierInfo,
		Usage: &TurnUsageDTO{
			Provider:         result.Meta.Provider,
			Model:            result.Meta.Model,
			PromptTokens:     result.Meta.PromptTokens,
			CompletionTokens: result.Meta.CompletionTokens,
			Temperature:      result.Meta.Temperature,
		},
	}
	if session != nil {
		resp.Deck = session.DeckJSON
	}
	if result.SavedRecord != nil {
		resp.SavedDeck = &SavedDeckDTO{
			ID:          result.SavedRecord.ID,
			DisplayName: result.SavedRecord.DisplayName,
			Title:       result.SavedRecord.Title,
			SlideCount:  len(result.SavedRecord.SlideIDs),
		}
	}
	return resp
}
