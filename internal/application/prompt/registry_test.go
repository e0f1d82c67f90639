package prompt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatTemplateKnownIDs(t *testing.T) {
	r := NewRegistry()
	ids := []PromptID{
		PromptClassifierV1,
		PromptClarificationV1,
		PromptSlideDeckV1,
		PromptUpdateContentV1,
		PromptCodeDeckV1,
	}
	for _, id := range ids {
		tpl, err := r.ChatTemplate(id)
		require.NoError(t, err, "template %s", id)
		require.NotNil(t, tpl)
	}
}

func TestChatTemplateFormatsVariables(t *testing.T) {
	r := NewRegistry()
	tpl, err := r.ChatTemplate(PromptClassifierV1)
	require.NoError(t, err)

	msgs, err := tpl.Format(context.Background(), map[string]any{
		"history_block": "user: hello",
		"prompt":        "make me a deck about Go",
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "make me a deck about Go")
	assert.Contains(t, msgs[1].Content, "user: hello")
}

func TestChatTemplateCached(t *testing.T) {
	r := NewRegistry()
	first, err := r.ChatTemplate(PromptSlideDeckV1)
	require.NoError(t, err)
	second, err := r.ChatTemplate(PromptSlideDeckV1)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestChatTemplateUnknownID(t *testing.T) {
	r := NewRegistry()
	_, err := r.ChatTemplate(PromptID("nonexistent_v9"))
	assert.Error(t, err)
}
