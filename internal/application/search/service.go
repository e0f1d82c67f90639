package search

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "slidekit-ai-api/pkg/errors"
)

const (
	defaultTopK = 10
	maxTopK     = 50
)

// SearchInput 检索请求
type SearchInput struct {
	UserID string
	Query  string
	TopK   int
}

// Hit 命中的文稿页
type Hit struct {
	RecordID   string  `json:"record_id"`
	SlideID    string  `json:"slide_id"`
	SlideTitle string  `json:"slide_title"`
	Snippet    string  `json:"snippet"`
	Score      float32 `json:"score"`
}

// SearchOutput 检索结果
type SearchOutput struct {
	Hits []*Hit `json:"hits"`
}

// Service 文稿语义检索服务
type Service struct {
	embedder Embedder
	vector   VectorRepository
}

func NewService(embedder Embedder, vectorRepo VectorRepository) *Service {
	return &Service{
		embedder: embedder,
		vector:   vectorRepo,
	}
}

func (s *Service) Enabled() bool {
	return s != nil && s.embedder != nil && s.vector != nil
}

// Search 按自然语言查询检索用户已保存文稿中的相关页
func (s *Service) Search(ctx context.Context, in SearchInput) (*SearchOutput, error) {
	in.UserID = strings.TrimSpace(in.UserID)
	in.Query = strings.TrimSpace(in.Query)
	if in.UserID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if in.Query == "" {
		return nil, fmt.Errorf("query is required")
	}
	if in.TopK <= 0 {
		in.TopK = defaultTopK
	}
	if in.TopK > maxTopK {
		in.TopK = maxTopK
	}
	if !s.Enabled() {
		return nil, ErrVectorDisabled
	}
	if err := s.vector.EnsureDeckSlidesCollection(ctx); err != nil {
		return nil, err
	}

	queryVector, err := s.embedder.EmbedOne(ctx, in.Query)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeEmbeddingFailed, "failed to embed query")
	}

	results, err := s.vector.SearchSlides(ctx, &VectorSearchParams{
		UserID:      in.UserID,
		QueryVector: queryVector,
		TopK:        in.TopK,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeVectorDBError, "failed to search slides")
	}

	out := &SearchOutput{Hits: make([]*Hit, 0, len(results))}
	for _, r := range results {
		if r == nil {
			continue
		}
		out.Hits = append(out.Hits, &Hit{
			RecordID:   r.RecordID,
			SlideID:    r.SlideID,
			SlideTitle: r.SlideTitle,
			Snippet:    snippet(r.TextContent, 280),
			Score:      r.Score,
		})
	}
	return out, nil
}

func snippet(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "…"
}
