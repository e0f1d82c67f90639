package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDeck() *Deck {
	return &Deck{
		Title:    "Binary Search",
		Subtitle: "An introduction",
		Slides: []Slide{
			{
				ID:    "s1",
				Title: "What is binary search",
				ContentBlocks: []ContentBlock{
					NewTextBlock("Divide and conquer lookup in a sorted slice."),
				},
			},
			{
				ID:    "s2",
				Title: "Implementation",
				ContentBlocks: []ContentBlock{
					NewCodeBlock("go", "func search(xs []int, target int) int { return 0 }"),
					NewTextBlock("Runs in O(log n)."),
				},
			},
			{
				ID:    "s3",
				Title: "Visualizing",
				ContentBlocks: []ContentBlock{
					NewImageBlock("binary search tree diagram", "Halving the search space"),
				},
			},
		},
		UserMessage: "Here is a 3-slide deck on binary search.",
	}
}

func TestDeckJSONRoundTrip(t *testing.T) {
	deck := sampleDeck()

	data, err := json.Marshal(deck)
	require.NoError(t, err)

	parsed, err := ParseDeck(data)
	require.NoError(t, err)

	assert.Equal(t, deck.Title, parsed.Title)
	assert.Equal(t, deck.Subtitle, parsed.Subtitle)
	assert.Equal(t, deck.UserMessage, parsed.UserMessage)
	assert.Equal(t, deck.SlideIDs(), parsed.SlideIDs())

	require.Len(t, parsed.Slides, 3)
	for i, slide := range parsed.Slides {
		require.Len(t, slide.ContentBlocks, len(deck.Slides[i].ContentBlocks))
		for j, block := range slide.ContentBlocks {
			assert.Equal(t, deck.Slides[i].ContentBlocks[j].Kind(), block.Kind())
		}
	}

	code, ok := parsed.Slides[1].ContentBlocks[0].(CodeBlock)
	require.True(t, ok)
	assert.Equal(t, "go", code.Language)
	assert.Contains(t, code.Body, "func search")

	img, ok := parsed.Slides[2].ContentBlocks[0].(ImageBlock)
	require.True(t, ok)
	assert.Equal(t, "binary search tree diagram", img.Query)
}

func TestContentBlockTagIsAuthoritative(t *testing.T) {
	// 标签外的字段被忽略：text 块不携带 query
	raw := []byte(`{"type":"text","body":"hello","query":"should be ignored"}`)
	block, err := unmarshalContentBlock(raw)
	require.NoError(t, err)

	text, ok := block.(TextBlock)
	require.True(t, ok)
	assert.Equal(t, "hello", text.Body)
}

func TestContentBlockUnknownTag(t *testing.T) {
	_, err := unmarshalContentBlock([]byte(`{"type":"video","body":"x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown content block type")
}

func TestCodeBlockDefaultLanguage(t *testing.T) {
	block, err := unmarshalContentBlock([]byte(`{"type":"code","body":"print(1)"}`))
	require.NoError(t, err)

	code, ok := block.(CodeBlock)
	require.True(t, ok)
	assert.Equal(t, "python", code.Language)
}

func TestDeckValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, sampleDeck().Validate())
	})

	t.Run("empty slides", func(t *testing.T) {
		deck := &Deck{Title: "Empty"}
		assert.Error(t, deck.Validate())
	})

	t.Run("duplicate slide ids", func(t *testing.T) {
		deck := sampleDeck()
		deck.Slides[2].ID = "s1"
		err := deck.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate slide id")
	})

	t.Run("empty slide id", func(t *testing.T) {
		deck := sampleDeck()
		deck.Slides[0].ID = ""
		assert.Error(t, deck.Validate())
	})
}

func TestParseDeckRejectsInvalid(t *testing.T) {
	_, err := ParseDeck([]byte(`{"title":"x","slides":[]}`))
	assert.Error(t, err)

	_, err = ParseDeck([]byte(`not json`))
	assert.Error(t, err)
}

func TestSessionDeckSnapshot(t *testing.T) {
	session := NewBrainstormSession("user-1", "Lesson planning")
	got, err := session.Deck()
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, session.SetDeck(sampleDeck()))
	got, err = session.Deck()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Binary Search", got.Title)
}

func TestNewDeckRecord(t *testing.T) {
	t.Run("with deck", func(t *testing.T) {
		rec, err := NewDeckRecord("user-1", "sess-1", "", sampleDeck(), "")
		require.NoError(t, err)
		assert.Equal(t, "Binary Search", rec.DisplayName)
		assert.Equal(t, "Binary Search", rec.Title)
		assert.Equal(t, []string{"s1", "s2", "s3"}, []string(rec.SlideIDs))
		assert.NotEmpty(t, rec.DeckJSON)
	})

	t.Run("without deck falls back to content", func(t *testing.T) {
		rec, err := NewDeckRecord("user-1", "sess-1", "myDeck", nil, "last assistant message")
		require.NoError(t, err)
		assert.Equal(t, "myDeck", rec.DisplayName)
		assert.Empty(t, rec.DeckJSON)
		assert.Equal(t, "last assistant message", rec.Markdown)
	})
}
