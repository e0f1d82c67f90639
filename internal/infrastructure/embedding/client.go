// Package embedding 提供文本向量化客户端
package embedding

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"slidekit-ai-api/internal/config"
)

// Client 基于 Eino OpenAI 适配器的 Embedder，支持批量切分
type Client struct {
	embedder  embedding.Embedder
	batchSize int
}

// NewClient 创建 Embedding 客户端
func NewClient(ctx context.Context, cfg *config.EmbeddingConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	embedder, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Client{embedder: embedder, batchSize: batchSize}, nil
}

// Embed 将一批文本向量化，内部按 batchSize 分批调用
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := i + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		vectors, err := c.embedder.EmbedStrings(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		for _, v := range vectors {
			all = append(all, toFloat32(v))
		}
	}

	return all, nil
}

// EmbedOne 单条文本向量化
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding returned no vector")
	}
	return vectors[0], nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
