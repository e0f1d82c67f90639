// Package deckstore 提供文稿保存与导出任务发布的落地实现
package deckstore

import (
	"context"
	"fmt"

	"slidekit-ai-api/internal/application/deck"
	"slidekit-ai-api/internal/application/search"
	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/internal/domain/repository"
	"slidekit-ai-api/internal/infrastructure/messaging"
	pkgerrors "slidekit-ai-api/pkg/errors"
	"slidekit-ai-api/pkg/logger"
)

// Service 保存文稿并触发向量索引
type Service struct {
	records  repository.DeckRecordRepository
	producer *messaging.Producer
	indexer  *search.Indexer
}

var _ deck.DeckStore = (*Service)(nil)

func NewService(records repository.DeckRecordRepository, producer *messaging.Producer, indexer *search.Indexer) *Service {
	return &Service{
		records:  records,
		producer: producer,
		indexer:  indexer,
	}
}

// SaveDeck 保存文稿。同名记录覆盖更新，保存成功后异步触发向量索引。
func (s *Service) SaveDeck(ctx context.Context, in *deck.SaveDeckInput) (*entity.DeckRecord, error) {
	if in == nil {
		return nil, fmt.Errorf("save input is nil")
	}

	record, err := entity.NewDeckRecord(in.UserID, in.SessionID, in.DisplayName, in.Deck, in.FallbackContent)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternalError, "failed to build deck record")
	}

	existing, err := s.records.GetByDisplayName(ctx, in.UserID, record.DisplayName)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to look up deck record")
	}

	if existing != nil {
		existing.SessionID = record.SessionID
		existing.Title = record.Title
		existing.DeckJSON = record.DeckJSON
		existing.SlideIDs = record.SlideIDs
		existing.Markdown = record.Markdown
		if err := s.records.Update(ctx, existing); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to update deck record")
		}
		record = existing
	} else {
		if err := s.records.Create(ctx, record); err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to create deck record")
		}
	}

	s.enqueueIndex(ctx, record)
	return record, nil
}

// GetByDisplayName 按保存名查找用户文稿
func (s *Service) GetByDisplayName(ctx context.Context, userID, displayName string) (*entity.DeckRecord, error) {
	record, err := s.records.GetByDisplayName(ctx, userID, displayName)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to look up deck record")
	}
	return record, nil
}

// enqueueIndex 发布索引任务；无消息层时同步索引，失败只记日志。
func (s *Service) enqueueIndex(ctx context.Context, record *entity.DeckRecord) {
	if s.producer != nil {
		if _, err := s.producer.PublishIndexJob(ctx, &messaging.DeckIndexMessage{
			RecordID: record.ID,
			UserID:   record.UserID,
		}); err != nil {
			logger.Warn(ctx, "failed to publish index job", "record_id", record.ID, "error", err)
		}
		return
	}

	if s.indexer != nil && s.indexer.Enabled() {
		if err := s.indexer.IndexRecord(ctx, record); err != nil {
			logger.Warn(ctx, "failed to index deck record", "record_id", record.ID, "error", err)
		}
	}
}
