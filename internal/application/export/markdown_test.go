package export

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidekit-ai-api/internal/domain/entity"
)

func TestRenderMarkdownFullDeck(t *testing.T) {
	deck := &entity.Deck{
		Title:    "Binary Search",
		Subtitle: "An introduction",
		Slides: []entity.Slide{
			{
				ID:    "s1",
				Title: "What is it",
				ContentBlocks: []entity.ContentBlock{
					entity.NewTextBlock("Divide and conquer search."),
					entity.NewCodeBlock("", "def bsearch(xs, t):\n    pass"),
				},
			},
			{
				ID:    "s2",
				Title: "Visualized",
				ContentBlocks: []entity.ContentBlock{
					entity.NewImageBlock("binary tree", "A search tree"),
				},
			},
		},
		UserMessage: "Here is your deck.",
	}
	require.NoError(t, deck.Validate())

	md := RenderMarkdown(deck)

	assert.True(t, strings.HasPrefix(md, "# Binary Search\n\n"))
	assert.Contains(t, md, "## An introduction\n\n")
	assert.Contains(t, md, "### What is it\n\n")
	assert.Contains(t, md, "Divide and conquer search.\n\n")
	assert.Contains(t, md, "```python\ndef bsearch(xs, t):\n    pass\n```\n\n")
	assert.Contains(t, md, "![A search tree](https://source.unsplash.com/featured/?binary tree)\n\n")
	assert.Contains(t, md, "---\n\n*Generated based on your message:*\n\nHere is your deck.\n\n")

	// 副标题在第一页标题之前
	assert.Less(t, strings.Index(md, "## An introduction"), strings.Index(md, "### What is it"))
}

func TestRenderMarkdownOmitsEmptySections(t *testing.T) {
	deck := &entity.Deck{
		Title: "No extras",
		Slides: []entity.Slide{
			{ID: "s1", Title: "Only slide", ContentBlocks: []entity.ContentBlock{
				entity.NewTextBlock("Body."),
			}},
		},
	}

	md := RenderMarkdown(deck)

	assert.NotContains(t, md, "\n## ")
	assert.NotContains(t, md, "---")
	assert.NotContains(t, md, "*Generated based on your message:*")
}
