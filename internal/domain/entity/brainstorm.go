// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"time"
)

// SessionStatus 头脑风暴会话状态
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusStreaming SessionStatus = "streaming"
	SessionStatusArchived  SessionStatus = "archived"
)

// BrainstormSession 头脑风暴会话，持有当前文稿快照
type BrainstormSession struct {
	ID        string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    string          `json:"user_id" gorm:"type:uuid;index;not null"`
	Title     string          `json:"title" gorm:"type:varchar(256);not null;default:''"`
	Status    SessionStatus   `json:"status" gorm:"type:varchar(16);not null;default:'active'"`
	DeckJSON  json.RawMessage `json:"deck_json,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (BrainstormSession) TableName() string {
	return "brainstorm_sessions"
}

func NewBrainstormSession(userID, title string) *BrainstormSession {
	now := time.Now()
	return &BrainstormSession{
		UserID:    userID,
		Title:     title,
		Status:    SessionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Deck 解析当前文稿快照，无快照时返回 nil
func (s *BrainstormSession) Deck() (*Deck, error) {
	if len(s.DeckJSON) == 0 {
		return nil, nil
	}
	return ParseDeck(s.DeckJSON)
}

// SetDeck 替换当前文稿快照
func (s *BrainstormSession) SetDeck(deck *Deck) error {
	data, err := json.Marshal(deck)
	if err != nil {
		return err
	}
	s.DeckJSON = data
	s.UpdatedAt = time.Now()
	return nil
}

// BrainstormTurn 会话轮次记录，只追加不修改
type BrainstormTurn struct {
	ID        string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID string          `json:"session_id" gorm:"type:uuid;index;not null"`
	Role      Role            `json:"role" gorm:"type:varchar(16);not null"`
	Content   string          `json:"content" gorm:"type:text;not null"`
	Category  string          `json:"category,omitempty" gorm:"type:varchar(32)"`
	Metadata  json.RawMessage `json:"metadata,omitempty" gorm:"type:jsonb"`
	CreatedAt time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

func (BrainstormTurn) TableName() string {
	return "brainstorm_turns"
}

func NewBrainstormTurn(sessionID string, role Role, content, category string, metadata json.RawMessage) *BrainstormTurn {
	return &BrainstormTurn{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Category:  category,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
}
