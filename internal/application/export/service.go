package export

import (
	"context"
	"fmt"

	"slidekit-ai-api/internal/domain/repository"
	pkgerrors "slidekit-ai-api/pkg/errors"
	"slidekit-ai-api/pkg/logger"
	"slidekit-ai-api/pkg/metrics"
)

// Service 文稿导出服务
type Service struct {
	records repository.DeckRecordRepository
}

func NewService(records repository.DeckRecordRepository) *Service {
	return &Service{records: records}
}

// Export 渲染指定文稿为 Markdown 并写回记录。
// 没有结构化内容的记录（只存了自由文本）保持已有 Markdown 不变。
func (s *Service) Export(ctx context.Context, recordID string) error {
	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		metrics.DeckExportsTotal.WithLabelValues("error").Inc()
		return pkgerrors.Wrap(err, pkgerrors.CodeExportFailed, "failed to load deck record")
	}
	if record == nil {
		metrics.DeckExportsTotal.WithLabelValues("not_found").Inc()
		return pkgerrors.New(pkgerrors.CodeDeckNotFound, fmt.Sprintf("deck record %s not found", recordID))
	}

	if len(record.DeckJSON) == 0 {
		logger.Info(ctx, "deck record has no structured deck, keeping existing markdown",
			"record_id", recordID)
		metrics.DeckExportsTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	deck, err := record.Deck()
	if err != nil {
		metrics.DeckExportsTotal.WithLabelValues("error").Inc()
		return pkgerrors.Wrap(err, pkgerrors.CodeExportFailed, "failed to parse stored deck")
	}

	markdown := RenderMarkdown(deck)
	if err := s.records.UpdateMarkdown(ctx, recordID, markdown); err != nil {
		metrics.DeckExportsTotal.WithLabelValues("error").Inc()
		return pkgerrors.Wrap(err, pkgerrors.CodeExportFailed, "failed to store rendered markdown")
	}

	logger.Info(ctx, "deck exported",
		"record_id", recordID,
		"slides", len(deck.Slides),
		"bytes", len(markdown))
	metrics.DeckExportsTotal.WithLabelValues("success").Inc()
	return nil
}
