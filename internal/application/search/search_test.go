package search

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidekit-ai-api/internal/domain/entity"
)

type fakeEmbedder struct {
	calls [][]string
}

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type fakeVectorRepo struct {
	slides  map[string][]*VectorDeckSlide // record id -> slides
	deletes []string
	ensured int
	results []*VectorSearchResult
}

func newFakeVectorRepo() *fakeVectorRepo {
	return &fakeVectorRepo{slides: make(map[string][]*VectorDeckSlide)}
}

func (f *fakeVectorRepo) EnsureDeckSlidesCollection(context.Context) error {
	f.ensured++
	return nil
}

func (f *fakeVectorRepo) SearchSlides(_ context.Context, params *VectorSearchParams) ([]*VectorSearchResult, error) {
	if len(f.results) > params.TopK {
		return f.results[:params.TopK], nil
	}
	return f.results, nil
}

func (f *fakeVectorRepo) DeleteByRecord(_ context.Context, _, recordID string) error {
	f.deletes = append(f.deletes, recordID)
	delete(f.slides, recordID)
	return nil
}

func (f *fakeVectorRepo) InsertSlideVectors(_ context.Context, _ string, slides []*VectorDeckSlide) error {
	for _, s := range slides {
		f.slides[s.RecordID] = append(f.slides[s.RecordID], s)
	}
	return nil
}

func testDeckRecord(t *testing.T) *entity.DeckRecord {
	t.Helper()
	deck := &entity.Deck{
		Title: "Binary Search",
		Slides: []entity.Slide{
			{ID: "s1", Title: "Idea", ContentBlocks: []entity.ContentBlock{
				entity.NewTextBlock("Halve the search space each step."),
			}},
			{ID: "s2", Title: "Code", ContentBlocks: []entity.ContentBlock{
				entity.NewCodeBlock("python", "def bsearch(xs, t): ..."),
			}},
			{ID: "s3", Title: "Picture", ContentBlocks: []entity.ContentBlock{
				entity.NewImageBlock("sorted array", "A sorted array"),
			}},
		},
		UserMessage: "done",
	}
	record, err := entity.NewDeckRecord("user-1", "sess-1", "my-deck", deck, "")
	require.NoError(t, err)
	record.ID = "rec-1"
	return record
}

func TestIndexRecordBuildsSlideVectors(t *testing.T) {
	embedder := &fakeEmbedder{}
	repo := newFakeVectorRepo()
	indexer := NewIndexer(embedder, repo, 2)

	record := testDeckRecord(t)
	require.NoError(t, indexer.IndexRecord(context.Background(), record))

	// 旧向量先删再写
	assert.Equal(t, []string{"rec-1"}, repo.deletes)

	slides := repo.slides["rec-1"]
	require.Len(t, slides, 3)
	assert.Equal(t, "rec-1:s1", slides[0].ID)
	assert.Equal(t, "s1", slides[0].SlideID)
	assert.Equal(t, "Idea", slides[0].SlideTitle)
	assert.Contains(t, slides[0].TextContent, "Halve the search space")
	assert.Contains(t, slides[1].TextContent, "def bsearch")
	assert.Contains(t, slides[2].TextContent, "A sorted array")
	for _, s := range slides {
		assert.NotEmpty(t, s.Vector)
	}

	// batch size 2 → 两批
	assert.Len(t, embedder.calls, 2)
}

func TestIndexRecordSkipsFreeTextRecords(t *testing.T) {
	embedder := &fakeEmbedder{}
	repo := newFakeVectorRepo()
	indexer := NewIndexer(embedder, repo, 0)

	record, err := entity.NewDeckRecord("user-1", "sess-1", "notes", nil, "just some notes")
	require.NoError(t, err)
	record.ID = "rec-2"
	require.NoError(t, indexer.IndexRecord(context.Background(), record))

	assert.Equal(t, []string{"rec-2"}, repo.deletes)
	assert.Empty(t, repo.slides["rec-2"])
	assert.Empty(t, embedder.calls)
}

func TestIndexerDisabledWithoutDeps(t *testing.T) {
	indexer := NewIndexer(nil, nil, 0)
	err := indexer.IndexRecord(context.Background(), testDeckRecord(t))
	assert.ErrorIs(t, err, ErrVectorDisabled)
}

func TestSearchReturnsHits(t *testing.T) {
	embedder := &fakeEmbedder{}
	repo := newFakeVectorRepo()
	repo.results = []*VectorSearchResult{
		{ID: "rec-1:s1", Score: 0.92, RecordID: "rec-1", SlideID: "s1", SlideTitle: "Idea", TextContent: "Halve the search space each step."},
		{ID: "rec-1:s2", Score: 0.71, RecordID: "rec-1", SlideID: "s2", SlideTitle: "Code", TextContent: strings.Repeat("x", 400)},
	}

	svc := NewService(embedder, repo)
	out, err := svc.Search(context.Background(), SearchInput{UserID: "user-1", Query: "binary search"})
	require.NoError(t, err)

	require.Len(t, out.Hits, 2)
	assert.Equal(t, "rec-1", out.Hits[0].RecordID)
	assert.Equal(t, "s1", out.Hits[0].SlideID)
	assert.InDelta(t, 0.92, out.Hits[0].Score, 1e-6)
	// 长文本被截断
	assert.True(t, strings.HasSuffix(out.Hits[1].Snippet, "…"))
	assert.Less(t, len([]rune(out.Hits[1].Snippet)), 300)
}

func TestSearchValidatesInput(t *testing.T) {
	svc := NewService(&fakeEmbedder{}, newFakeVectorRepo())

	_, err := svc.Search(context.Background(), SearchInput{Query: "q"})
	assert.Error(t, err)

	_, err = svc.Search(context.Background(), SearchInput{UserID: "u"})
	assert.Error(t, err)
}
