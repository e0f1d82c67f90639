package deck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitCommand(t *testing.T) {
	cmd, arg := splitCommand("/save myDeck")
	assert.Equal(t, "/save", cmd)
	assert.Equal(t, "myDeck", arg)

	cmd, arg = splitCommand("/save")
	assert.Equal(t, "/save", cmd)
	assert.Empty(t, arg)

	cmd, arg = splitCommand("  /export  quarterly review  ")
	assert.Equal(t, "/export", cmd)
	assert.Equal(t, "quarterly review", arg)
}

func TestRunSaveWithoutDeck(t *testing.T) {
	store := &fakeDeckStore{}
	runner := NewCommandRunner(store, &fakePublisher{})

	history := []Message{
		{Role: "user", Content: "help me brainstorm"},
		{Role: "assistant", Content: "What topic is the presentation about?"},
	}
	result, err := runner.Run(context.Background(), &CommandInput{
		UserID:         "user-1",
		SessionID:      "sess-1",
		Command:        "/save myDeck",
		MessageHistory: history,
	})
	require.NoError(t, err)

	// 无文稿时，持久化收到最后一条助手消息
	require.Len(t, store.saved, 1)
	saved := store.saved[0]
	assert.Equal(t, "myDeck", saved.DisplayName)
	assert.Nil(t, saved.Deck)
	assert.Equal(t, "What topic is the presentation about?", saved.FallbackContent)

	assert.Contains(t, result.FinalResponse, "myDeck")
	require.NotNil(t, result.SavedRecord)
}

func TestRunSaveDisplayNameFromDeckTitle(t *testing.T) {
	store := &fakeDeckStore{}
	runner := NewCommandRunner(store, &fakePublisher{})

	result, err := runner.Run(context.Background(), &CommandInput{
		UserID:      "user-1",
		SessionID:   "sess-1",
		Command:     "/save",
		CurrentDeck: sampleDeck(),
	})
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "Binary Search", store.saved[0].DisplayName)
	assert.NotNil(t, store.saved[0].Deck)
	assert.Contains(t, result.FinalResponse, "Binary Search")
}

func TestRunExportSavesThenPublishes(t *testing.T) {
	store := &fakeDeckStore{}
	publisher := &fakePublisher{}
	runner := NewCommandRunner(store, publisher)

	result, err := runner.Run(context.Background(), &CommandInput{
		UserID:      "user-1",
		SessionID:   "sess-1",
		Command:     "/export",
		CurrentDeck: sampleDeck(),
	})
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	require.Len(t, publisher.published, 1)
	assert.Equal(t, result.SavedRecord.ID, publisher.published[0])
	assert.Contains(t, result.FinalResponse, "queued")
}

func TestRunUnknownCommand(t *testing.T) {
	runner := NewCommandRunner(&fakeDeckStore{}, &fakePublisher{})

	history := []Message{{Role: "user", Content: "hi"}}
	result, err := runner.Run(context.Background(), &CommandInput{
		UserID:         "user-1",
		SessionID:      "sess-1",
		Command:        "/frobnicate now",
		MessageHistory: history,
	})

	// 未识别命令在本地处理：返回诊断消息，不抛错
	require.NoError(t, err)
	assert.Equal(t, "unknown command: /frobnicate", result.FinalResponse)
}

func TestRunHelp(t *testing.T) {
	runner := NewCommandRunner(&fakeDeckStore{}, &fakePublisher{})

	result, err := runner.Run(context.Background(), &CommandInput{Command: "/help"})
	require.NoError(t, err)
	assert.Contains(t, result.FinalResponse, "/save")
	assert.Contains(t, result.FinalResponse, "/export")
}
