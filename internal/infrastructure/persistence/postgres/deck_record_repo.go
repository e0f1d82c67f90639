// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/internal/domain/repository"
)

type DeckRecordRepository struct {
	client *Client
}

func NewDeckRecordRepository(client *Client) *DeckRecordRepository {
	return &DeckRecordRepository{client: client}
}

func (r *DeckRecordRepository) Create(ctx context.Context, record *entity.DeckRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.DeckRecordRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create deck record: %w", err)
	}
	return nil
}

func (r *DeckRecordRepository) GetByID(ctx context.Context, id string) (*entity.DeckRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.DeckRecordRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var record entity.DeckRecord
	if err := db.First(&record, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get deck record: %w", err)
	}
	return &record, nil
}

func (r *DeckRecordRepository) GetByDisplayName(ctx context.Context, userID, displayName string) (*entity.DeckRecord, error) {
	ctx, span := tracer.Start(ctx, "postgres.DeckRecordRepository.GetByDisplayName")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var record entity.DeckRecord
	if err := db.First(&record, "user_id = ? AND display_name = ?", userID, displayName).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get deck record by display name: %w", err)
	}
	return &record, nil
}

func (r *DeckRecordRepository) Update(ctx context.Context, record *entity.DeckRecord) error {
	ctx, span := tracer.Start(ctx, "postgres.DeckRecordRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(record).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update deck record: %w", err)
	}
	return nil
}

func (r *DeckRecordRepository) UpdateMarkdown(ctx context.Context, id, markdown string) error {
	ctx, span := tracer.Start(ctx, "postgres.DeckRecordRepository.UpdateMarkdown")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.DeckRecord{}).Where("id = ?", id).Update("markdown", markdown).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update deck record markdown: %w", err)
	}
	return nil
}

func (r *DeckRecordRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.DeckRecordRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.DeckRecord{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete deck record: %w", err)
	}
	return nil
}

func (r *DeckRecordRepository) ListByUser(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.DeckRecord], error) {
	ctx, span := tracer.Start(ctx, "postgres.DeckRecordRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.DeckRecord{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count deck records: %w", err)
	}

	var records []*entity.DeckRecord
	if err := query.Order("updated_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list deck records: %w", err)
	}

	return repository.NewPagedResult(records, total, pagination), nil
}
