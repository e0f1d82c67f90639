// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/internal/domain/repository"
)

type BrainstormSessionRepository struct {
	client *Client
}

func NewBrainstormSessionRepository(client *Client) *BrainstormSessionRepository {
	return &BrainstormSessionRepository{client: client}
}

func (r *BrainstormSessionRepository) Create(ctx context.Context, session *entity.BrainstormSession) error {
	ctx, span := tracer.Start(ctx, "postgres.BrainstormSessionRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(session).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create brainstorm session: %w", err)
	}
	return nil
}

func (r *BrainstormSessionRepository) GetByID(ctx context.Context, id string) (*entity.BrainstormSession, error) {
	ctx, span := tracer.Start(ctx, "postgres.BrainstormSessionRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var session entity.BrainstormSession
	if err := db.First(&session, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get brainstorm session: %w", err)
	}
	return &session, nil
}

func (r *BrainstormSessionRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.BrainstormSession, error) {
	ctx, span := tracer.Start(ctx, "postgres.BrainstormSessionRepository.GetByIDForUpdate")
	defer span.End()

	db := getDB(ctx, r.client.db).Clauses(clause.Locking{Strength: "UPDATE"})
	var session entity.BrainstormSession
	if err := db.First(&session, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get brainstorm session for update: %w", err)
	}
	return &session, nil
}

func (r *BrainstormSessionRepository) Update(ctx context.Context, session *entity.BrainstormSession) error {
	ctx, span := tracer.Start(ctx, "postgres.BrainstormSessionRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(session).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update brainstorm session: %w", err)
	}
	return nil
}

func (r *BrainstormSessionRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.BrainstormSession], error) {
	ctx, span := tracer.Start(ctx, "postgres.BrainstormSessionRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.BrainstormSession{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count brainstorm sessions: %w", err)
	}

	var sessions []*entity.BrainstormSession
	if err := query.Order("updated_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&sessions).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list brainstorm sessions: %w", err)
	}

	return repository.NewPagedResult(sessions, total, pagination), nil
}
