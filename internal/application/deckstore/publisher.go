package deckstore

import (
	"context"

	"slidekit-ai-api/internal/application/deck"
	"slidekit-ai-api/internal/infrastructure/messaging"
	pkgerrors "slidekit-ai-api/pkg/errors"
	"slidekit-ai-api/pkg/logger"
)

// ExportPublisher 将导出请求写入 Redis Stream，由导出 worker 消费
type ExportPublisher struct {
	producer *messaging.Producer
}

var _ deck.ExportPublisher = (*ExportPublisher)(nil)

func NewExportPublisher(producer *messaging.Producer) *ExportPublisher {
	return &ExportPublisher{producer: producer}
}

func (p *ExportPublisher) PublishExport(ctx context.Context, recordID string) error {
	if p == nil || p.producer == nil {
		return pkgerrors.New(pkgerrors.CodeServiceUnavailable, "export queue not configured")
	}

	streamID, err := p.producer.PublishExportJob(ctx, &messaging.DeckExportMessage{
		RecordID: recordID,
	})
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeExportFailed, "failed to enqueue export job")
	}

	logger.Info(ctx, "export job enqueued", "record_id", recordID, "stream_id", streamID)
	return nil
}
