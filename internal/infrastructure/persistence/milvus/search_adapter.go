package milvus

import (
	"context"

	"slidekit-ai-api/internal/application/search"
)

// SearchVectorRepository 将 Milvus 仓储适配为检索应用层的 port
type SearchVectorRepository struct {
	repo *Repository
}

func NewSearchVectorRepository(repo *Repository) *SearchVectorRepository {
	return &SearchVectorRepository{repo: repo}
}

var _ search.VectorRepository = (*SearchVectorRepository)(nil)

func (r *SearchVectorRepository) EnsureDeckSlidesCollection(ctx context.Context) error {
	if r == nil || r.repo == nil {
		return search.ErrVectorDisabled
	}
	return r.repo.EnsureDeckSlidesCollection(ctx)
}

func (r *SearchVectorRepository) SearchSlides(ctx context.Context, params *search.VectorSearchParams) ([]*search.VectorSearchResult, error) {
	if r == nil || r.repo == nil {
		return nil, search.ErrVectorDisabled
	}
	if params == nil {
		return nil, nil
	}

	out, err := r.repo.SearchSlides(ctx, &SearchParams{
		UserID:      params.UserID,
		QueryVector: params.QueryVector,
		TopK:        params.TopK,
	})
	if err != nil {
		return nil, err
	}

	results := make([]*search.VectorSearchResult, 0, len(out))
	for i := range out {
		v := out[i]
		if v == nil {
			continue
		}
		results = append(results, &search.VectorSearchResult{
			ID:          v.ID,
			Score:       v.Score,
			RecordID:    v.RecordID,
			SlideID:     v.SlideID,
			SlideTitle:  v.SlideTitle,
			TextContent: v.TextContent,
		})
	}
	return results, nil
}

func (r *SearchVectorRepository) DeleteByRecord(ctx context.Context, userID, recordID string) error {
	if r == nil || r.repo == nil {
		return search.ErrVectorDisabled
	}
	return r.repo.DeleteByRecord(ctx, userID, recordID)
}

func (r *SearchVectorRepository) InsertSlideVectors(ctx context.Context, userID string, slides []*search.VectorDeckSlide) error {
	if r == nil || r.repo == nil {
		return search.ErrVectorDisabled
	}
	if len(slides) == 0 {
		return nil
	}

	out := make([]*DeckSlideVector, 0, len(slides))
	for i := range slides {
		s := slides[i]
		if s == nil {
			continue
		}
		out = append(out, &DeckSlideVector{
			ID:          s.ID,
			UserID:      s.UserID,
			RecordID:    s.RecordID,
			SlideID:     s.SlideID,
			SlideTitle:  s.SlideTitle,
			TextContent: s.TextContent,
			Vector:      s.Vector,
		})
	}
	return r.repo.InsertSlideVectors(ctx, userID, out)
}
