// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"encoding/json"
	"time"

	"slidekit-ai-api/internal/application/search"
	"slidekit-ai-api/internal/domain/entity"
)

// DeckRecordResponse 文稿记录响应
type DeckRecordResponse struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id,omitempty"`
	DisplayName string          `json:"display_name"`
	Title       string          `json:"title"`
	Deck        json.RawMessage `json:"deck,omitempty"`
	SlideIDs    []string        `json:"slide_ids"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// DeckRecordListResponse 文稿记录列表响应
type DeckRecordListResponse struct {
	Items []*DeckRecordResponse `json:"items"`
}

// DeckMarkdownResponse 文稿 Markdown 导出响应
type DeckMarkdownResponse struct {
	ID       string `json:"id"`
	Markdown string `json:"markdown"`
}

// ExportAcceptedResponse 导出任务受理响应
type ExportAcceptedResponse struct {
	RecordID string `json:"record_id"`
	Status   string `json:"status"`
}

// SearchSlidesRequest 幻灯片语义检索请求
type SearchSlidesRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k" binding:"omitempty,min=1,max=50"`
}

// SearchSlidesResponse 幻灯片语义检索响应
type SearchSlidesResponse struct {
	Hits []*search.Hit `json:"hits"`
}

// ToDeckRecordResponse 实体转换为响应
func ToDeckRecordResponse(r *entity.DeckRecord, withDeck bool) *DeckRecordResponse {
	if r == nil {
		return nil
	}
	resp := &DeckRecordResponse{
		ID:          r.ID,
		SessionID:   r.SessionID,
		DisplayName: r.DisplayName,
		Title:       r.Title,
		SlideIDs:    r.SlideIDs,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if withDeck {
		resp.Deck = r.DeckJSON
	}
	return resp
}

// ToDeckRecordListResponse 实体列表转换为响应
func ToDeckRecordListResponse(records []*entity.DeckRecord) *DeckRecordListResponse {
	items := make([]*DeckRecordResponse, len(records))
	for i, r := range records {
		items[i] = ToDeckRecordResponse(r, false)
	}
	return &DeckRecordListResponse{Items: items}
}
