// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"slidekit-ai-api/internal/domain/entity"
)

// DeckRecordRepository 已保存文稿仓储接口
type DeckRecordRepository interface {
	Create(ctx context.Context, record *entity.DeckRecord) error
	GetByID(ctx context.Context, id string) (*entity.DeckRecord, error)
	GetByDisplayName(ctx context.Context, userID, displayName string) (*entity.DeckRecord, error)
	Update(ctx context.Context, record *entity.DeckRecord) error
	UpdateMarkdown(ctx context.Context, id, markdown string) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.DeckRecord], error)
}
