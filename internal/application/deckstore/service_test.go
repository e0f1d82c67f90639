package deckstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidekit-ai-api/internal/application/deck"
	"slidekit-ai-api/internal/application/search"
	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/internal/domain/repository"
)

type fakeRecordRepo struct {
	byName  map[string]*entity.DeckRecord
	creates int
	updates int
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{byName: make(map[string]*entity.DeckRecord)}
}

func (f *fakeRecordRepo) Create(_ context.Context, record *entity.DeckRecord) error {
	f.creates++
	if record.ID == "" {
		record.ID = "rec-1"
	}
	f.byName[record.UserID+"/"+record.DisplayName] = record
	return nil
}

func (f *fakeRecordRepo) GetByID(_ context.Context, id string) (*entity.DeckRecord, error) {
	for _, r := range f.byName {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRecordRepo) GetByDisplayName(_ context.Context, userID, displayName string) (*entity.DeckRecord, error) {
	return f.byName[userID+"/"+displayName], nil
}

func (f *fakeRecordRepo) Update(_ context.Context, record *entity.DeckRecord) error {
	f.updates++
	f.byName[record.UserID+"/"+record.DisplayName] = record
	return nil
}

func (f *fakeRecordRepo) UpdateMarkdown(_ context.Context, id, markdown string) error {
	for _, r := range f.byName {
		if r.ID == id {
			r.Markdown = markdown
		}
	}
	return nil
}

func (f *fakeRecordRepo) Delete(_ context.Context, id string) error {
	for k, r := range f.byName {
		if r.ID == id {
			delete(f.byName, k)
		}
	}
	return nil
}

func (f *fakeRecordRepo) ListByUser(_ context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.DeckRecord], error) {
	var records []*entity.DeckRecord
	for _, r := range f.byName {
		if r.UserID == userID {
			records = append(records, r)
		}
	}
	return repository.NewPagedResult(records, int64(len(records)), pagination), nil
}

type noopVectorRepo struct {
	indexed []string
}

func (n *noopVectorRepo) EnsureDeckSlidesCollection(context.Context) error { return nil }
func (n *noopVectorRepo) SearchSlides(context.Context, *search.VectorSearchParams) ([]*search.VectorSearchResult, error) {
	return nil, nil
}
func (n *noopVectorRepo) DeleteByRecord(_ context.Context, _, recordID string) error { return nil }
func (n *noopVectorRepo) InsertSlideVectors(_ context.Context, _ string, slides []*search.VectorDeckSlide) error {
	for _, s := range slides {
		n.indexed = append(n.indexed, s.ID)
	}
	return nil
}

type constEmbedder struct{}

func (constEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1}
	}
	return out, nil
}

func (e constEmbedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	return []float32{1}, nil
}

func sampleDeck(t *testing.T) *entity.Deck {
	t.Helper()
	deck, err := entity.ParseDeck([]byte(`{
		"title": "Graphs",
		"slides": [
			{"id": "s1", "title": "Intro", "content_blocks": [{"type": "text", "body": "Nodes and edges."}]}
		],
		"user_message": "Here is a deck on graphs."
	}`))
	require.NoError(t, err)
	return deck
}

func TestSaveDeckCreatesRecord(t *testing.T) {
	repo := newFakeRecordRepo()
	vec := &noopVectorRepo{}
	svc := NewService(repo, nil, search.NewIndexer(constEmbedder{}, vec, 0))

	record, err := svc.SaveDeck(context.Background(), &deck.SaveDeckInput{
		UserID:      "user-1",
		SessionID:   "sess-1",
		DisplayName: "graphs",
		Deck:        sampleDeck(t),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, "graphs", record.DisplayName)
	assert.Equal(t, "Graphs", record.Title)
	assert.Equal(t, []string{"rec-1:s1"}, vec.indexed)
}

func TestSaveDeckOverwritesSameName(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := NewService(repo, nil, nil)

	first, err := svc.SaveDeck(context.Background(), &deck.SaveDeckInput{
		UserID:      "user-1",
		SessionID:   "sess-1",
		DisplayName: "graphs",
		Deck:        sampleDeck(t),
	})
	require.NoError(t, err)

	second, err := svc.SaveDeck(context.Background(), &deck.SaveDeckInput{
		UserID:          "user-1",
		SessionID:       "sess-2",
		DisplayName:     "graphs",
		FallbackContent: "free text version",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, 1, repo.updates)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "sess-2", second.SessionID)
	assert.Equal(t, "free text version", second.Markdown)
}

func TestSaveDeckDefaultsDisplayNameFromTitle(t *testing.T) {
	repo := newFakeRecordRepo()
	svc := NewService(repo, nil, nil)

	record, err := svc.SaveDeck(context.Background(), &deck.SaveDeckInput{
		UserID:    "user-1",
		SessionID: "sess-1",
		Deck:      sampleDeck(t),
	})
	require.NoError(t, err)
	assert.Equal(t, "Graphs", record.DisplayName)
}
