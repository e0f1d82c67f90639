// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// DeckRecord 已保存的命名文稿
type DeckRecord struct {
	ID          string          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID      string          `json:"user_id" gorm:"type:uuid;index;not null"`
	SessionID   string          `json:"session_id" gorm:"type:uuid;index"`
	DisplayName string          `json:"display_name" gorm:"type:varchar(256);not null"`
	Title       string          `json:"title" gorm:"type:varchar(256);not null;default:''"`
	DeckJSON    json.RawMessage `json:"deck_json,omitempty" gorm:"type:jsonb"`
	SlideIDs    pq.StringArray  `json:"slide_ids" gorm:"type:text[]"`
	Markdown    string          `json:"markdown,omitempty" gorm:"type:text"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time       `json:"updated_at" gorm:"autoUpdateTime"`
}

func (DeckRecord) TableName() string {
	return "deck_records"
}

// NewDeckRecord 从会话产物创建保存记录
// deck 可以为空：无文稿时保存最后一条助手消息作为内容
func NewDeckRecord(userID, sessionID, displayName string, deck *Deck, fallbackContent string) (*DeckRecord, error) {
	now := time.Now()
	rec := &DeckRecord{
		UserID:      userID,
		SessionID:   sessionID,
		DisplayName: displayName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if deck != nil {
		data, err := json.Marshal(deck)
		if err != nil {
			return nil, err
		}
		rec.Title = deck.Title
		rec.DeckJSON = data
		rec.SlideIDs = pq.StringArray(deck.SlideIDs())
		if rec.DisplayName == "" {
			rec.DisplayName = deck.Title
		}
	} else {
		rec.Markdown = fallbackContent
	}

	return rec, nil
}

// Deck 解析保存的文稿，无文稿时返回 nil
func (r *DeckRecord) Deck() (*Deck, error) {
	if len(r.DeckJSON) == 0 {
		return nil, nil
	}
	return ParseDeck(r.DeckJSON)
}
