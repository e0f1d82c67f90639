// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/internal/domain/repository"
)

type BrainstormTurnRepository struct {
	client *Client
}

func NewBrainstormTurnRepository(client *Client) *BrainstormTurnRepository {
	return &BrainstormTurnRepository{client: client}
}

func (r *BrainstormTurnRepository) Create(ctx context.Context, turn *entity.BrainstormTurn) error {
	ctx, span := tracer.Start(ctx, "postgres.BrainstormTurnRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(turn).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create brainstorm turn: %w", err)
	}
	return nil
}

func (r *BrainstormTurnRepository) ListBySession(ctx context.Context, sessionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.BrainstormTurn], error) {
	ctx, span := tracer.Start(ctx, "postgres.BrainstormTurnRepository.ListBySession")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.BrainstormTurn{}).Where("session_id = ?", sessionID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count brainstorm turns: %w", err)
	}

	var turns []*entity.BrainstormTurn
	if err := query.Order("created_at ASC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&turns).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list brainstorm turns: %w", err)
	}

	return repository.NewPagedResult(turns, total, pagination), nil
}

// ListRecentBySession 取最近 limit 条并恢复时间正序
func (r *BrainstormTurnRepository) ListRecentBySession(ctx context.Context, sessionID string, limit int) ([]*entity.BrainstormTurn, error) {
	ctx, span := tracer.Start(ctx, "postgres.BrainstormTurnRepository.ListRecentBySession")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var turns []*entity.BrainstormTurn
	if err := db.Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&turns).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list recent brainstorm turns: %w", err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
