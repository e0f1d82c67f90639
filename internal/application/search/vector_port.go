// Package search 提供已保存文稿的语义检索与向量索引
package search

import "context"

// VectorRepository 定义应用层对向量存储的最小依赖（port），
// 由基础设施层提供具体实现（例如 Milvus）。
type VectorRepository interface {
	EnsureDeckSlidesCollection(ctx context.Context) error
	SearchSlides(ctx context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error)
	DeleteByRecord(ctx context.Context, userID, recordID string) error
	InsertSlideVectors(ctx context.Context, userID string, slides []*VectorDeckSlide) error
}

// Embedder 定义应用层对文本向量化的依赖
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedOne(ctx context.Context, text string) ([]float32, error)
}

type VectorSearchParams struct {
	UserID      string
	QueryVector []float32
	TopK        int
}

type VectorSearchResult struct {
	ID          string
	Score       float32
	RecordID    string
	SlideID     string
	SlideTitle  string
	TextContent string
}

type VectorDeckSlide struct {
	ID          string
	UserID      string
	RecordID    string
	SlideID     string
	SlideTitle  string
	TextContent string
	Vector      []float32
}
