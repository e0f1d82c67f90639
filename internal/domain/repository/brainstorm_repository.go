// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"slidekit-ai-api/internal/domain/entity"
)

type BrainstormSessionRepository interface {
	Create(ctx context.Context, session *entity.BrainstormSession) error
	GetByID(ctx context.Context, id string) (*entity.BrainstormSession, error)
	// GetByIDForUpdate 行锁读取，保证同一会话的轮次串行处理
	GetByIDForUpdate(ctx context.Context, id string) (*entity.BrainstormSession, error)
	Update(ctx context.Context, session *entity.BrainstormSession) error
	ListByUser(ctx context.Context, userID string, pagination Pagination) (*PagedResult[*entity.BrainstormSession], error)
}

type BrainstormTurnRepository interface {
	Create(ctx context.Context, turn *entity.BrainstormTurn) error
	ListBySession(ctx context.Context, sessionID string, pagination Pagination) (*PagedResult[*entity.BrainstormTurn], error)
	// ListRecentBySession 按时间正序返回最近 limit 条轮次，用于装载会话历史
	ListRecentBySession(ctx context.Context, sessionID string, limit int) ([]*entity.BrainstormTurn, error)
}
