package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCategory(t *testing.T) {
	for _, valid := range []string{
		"clarification", "generate_slide_content", "update_content", "generate_for_code", "slash_command",
	} {
		c, ok := ParseCategory(valid)
		assert.True(t, ok, valid)
		assert.Equal(t, Category(valid), c)
	}

	c, ok := ParseCategory("banana")
	assert.False(t, ok)
	assert.Equal(t, Category("banana"), c)
}

func TestDispatch(t *testing.T) {
	tests := []struct {
		category Category
		want     Route
	}{
		{CategoryClarification, RouteGenerator},
		{CategoryGenerateSlides, RouteGenerator},
		{CategoryUpdateContent, RouteGenerator},
		{CategoryGenerateForCode, RouteGenerator},
		{CategorySlashCommand, RouteCommand},
		{Category("banana"), RouteTerminate},
		{Category(""), RouteTerminate},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Dispatch(tt.category), string(tt.category))
	}
}

func TestIsIncremental(t *testing.T) {
	assert.True(t, CategoryUpdateContent.IsIncremental())
	assert.True(t, CategoryGenerateForCode.IsIncremental())
	assert.False(t, CategoryClarification.IsIncremental())
	assert.False(t, CategoryGenerateSlides.IsIncremental())
	assert.False(t, CategorySlashCommand.IsIncremental())
}

func TestTurnStateTransitions(t *testing.T) {
	legal := []struct{ from, to TurnState }{
		{TurnStateIdle, TurnStateClassifying},
		{TurnStateClassifying, TurnStateDispatching},
		{TurnStateDispatching, TurnStateGenerating},
		{TurnStateDispatching, TurnStateCompleted},
		{TurnStateGenerating, TurnStateCompleted},
	}
	for _, tt := range legal {
		assert.True(t, tt.from.CanAdvanceTo(tt.to), "%s -> %s", tt.from, tt.to)
	}

	illegal := []struct{ from, to TurnState }{
		{TurnStateIdle, TurnStateGenerating},
		{TurnStateIdle, TurnStateCompleted},
		{TurnStateClassifying, TurnStateGenerating},
		{TurnStateClassifying, TurnStateIdle},
		{TurnStateGenerating, TurnStateClassifying},
		{TurnStateCompleted, TurnStateClassifying},
		{TurnStateCompleted, TurnStateIdle},
	}
	for _, tt := range illegal {
		assert.False(t, tt.from.CanAdvanceTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}
