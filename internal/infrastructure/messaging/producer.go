// Package messaging 提供消息队列实现
package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("messaging")

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	maxLen int64
}

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = 100000
	}
	return &Producer{
		client: client,
		maxLen: maxLen,
	}
}

// Publish 发布消息到指定流
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", string(stream)),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishExportJob 发布文稿导出任务
func (p *Producer) PublishExportJob(ctx context.Context, job *DeckExportMessage) (string, error) {
	msg, err := NewMessage(job.RecordID, TypeDeckExport, job.UserID, job.SessionID, job)
	if err != nil {
		return "", err
	}

	if job.RequestID != "" {
		msg.SetMetadata("request_id", job.RequestID)
	}
	return p.Publish(ctx, StreamDeckExport, msg)
}

// PublishIndexJob 发布文稿向量索引任务
func (p *Producer) PublishIndexJob(ctx context.Context, job *DeckIndexMessage) (string, error) {
	msg, err := NewMessage(job.RecordID, TypeDeckIndex, job.UserID, "", job)
	if err != nil {
		return "", err
	}

	return p.Publish(ctx, StreamDeckIndex, msg)
}

// DeckExportMessage 文稿导出消息
type DeckExportMessage struct {
	RecordID  string `json:"record_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// DeckIndexMessage 文稿向量索引消息
type DeckIndexMessage struct {
	RecordID string `json:"record_id"`
	UserID   string `json:"user_id"`
}
