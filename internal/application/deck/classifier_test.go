package deck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySlashShortCircuit(t *testing.T) {
	factory := &fakeFactory{model: &fakeChatModel{}}
	classifier := NewClassifier(factory)

	out, err := classifier.Classify(context.Background(), &ClassifyInput{
		UserPrompt: "/save myDeck",
		Provider:   "openai",
	})
	require.NoError(t, err)
	assert.Equal(t, CategorySlashCommand, out.Category)
	assert.True(t, out.ShortCircuit)

	// 命令短路绝不触达模型
	assert.Zero(t, factory.gets)
}

func TestClassifyModelPath(t *testing.T) {
	fake := &fakeChatModel{responses: []string{
		classifierJSON("generate_slide_content", "user wants slides"),
	}}
	classifier := NewClassifier(&fakeFactory{model: fake})

	out, err := classifier.Classify(context.Background(), &ClassifyInput{
		UserPrompt: "Make me a deck on binary search",
		MessageHistory: []Message{
			{Role: "user", Content: "Make me a deck on binary search"},
		},
		Provider: "openai",
	})
	require.NoError(t, err)
	assert.Equal(t, CategoryGenerateSlides, out.Category)
	assert.Equal(t, "user wants slides", out.Information)
	assert.False(t, out.ShortCircuit)
	assert.Equal(t, 1, fake.generateCalls)
}

func TestClassifyOutOfEnumPropagates(t *testing.T) {
	fake := &fakeChatModel{responses: []string{
		classifierJSON("banana", "no idea"),
	}}
	classifier := NewClassifier(&fakeFactory{model: fake})

	out, err := classifier.Classify(context.Background(), &ClassifyInput{
		UserPrompt: "something odd",
		Provider:   "openai",
	})
	require.NoError(t, err)

	// 枚举外的值原样向上传递，由分发器决定终止
	assert.Equal(t, Category("banana"), out.Category)
	_, ok := ParseCategory(string(out.Category))
	assert.False(t, ok)
}

func TestClassifyTolerantJSONExtraction(t *testing.T) {
	fake := &fakeChatModel{responses: []string{
		"Sure, here is the classification:\n```json\n" + classifierJSON("clarification", "needs detail") + "\n```",
	}}
	classifier := NewClassifier(&fakeFactory{model: fake})

	out, err := classifier.Classify(context.Background(), &ClassifyInput{
		UserPrompt: "hello",
		Provider:   "openai",
	})
	require.NoError(t, err)
	assert.Equal(t, CategoryClarification, out.Category)
}

func TestClassifyInvalidOutput(t *testing.T) {
	fake := &fakeChatModel{responses: []string{"not remotely json"}}
	classifier := NewClassifier(&fakeFactory{model: fake})

	_, err := classifier.Classify(context.Background(), &ClassifyInput{
		UserPrompt: "hello",
		Provider:   "openai",
	})
	assert.Error(t, err)
}
