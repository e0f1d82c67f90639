package deck

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(fake *fakeChatModel, store *fakeDeckStore, publisher *fakePublisher) (*Orchestrator, *fakeFactory) {
	factory := &fakeFactory{model: fake}
	return NewOrchestrator(
		NewClassifier(factory),
		NewClarifyGenerator(factory),
		NewDeckGenerator(factory),
		NewReviseGenerator(factory),
		NewCodeDeckGenerator(factory),
		NewCommandRunner(store, publisher),
	), factory
}

// Scenario: "/save myDeck" 短路进命令执行器，模型一次都不会被调用
func TestTurnSlashCommand(t *testing.T) {
	fake := &fakeChatModel{}
	store := &fakeDeckStore{}
	o, factory := newTestOrchestrator(fake, store, &fakePublisher{})

	history := []Message{
		{Role: "user", Content: "brainstorm with me"},
		{Role: "assistant", Content: "What audience are you presenting to?"},
	}
	result, err := o.RunTurn(context.Background(), &TurnInput{
		UserID:         "user-1",
		SessionID:      "sess-1",
		UserPrompt:     "/save myDeck",
		MessageHistory: history,
		Provider:       "openai",
	})
	require.NoError(t, err)

	assert.Equal(t, CategorySlashCommand, result.Category)
	assert.Equal(t, RouteCommand, result.Route)
	assert.Equal(t, TurnStateCompleted, result.State)
	assert.Zero(t, factory.gets)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "myDeck", store.saved[0].DisplayName)
	assert.Equal(t, "What audience are you presenting to?", store.saved[0].FallbackContent)

	// 合并后的历史以 user + assistant 结尾
	require.Len(t, result.MessageHistory, len(history)+2)
	assert.Equal(t, "/save myDeck", result.MessageHistory[len(history)].Content)
}

// Scenario: 三页文稿生成，finalResponse 等于 deck.user_message，文稿被替换
func TestTurnGenerateSlides(t *testing.T) {
	fake := &fakeChatModel{responses: []string{
		classifierJSON("generate_slide_content", "user wants a deck"),
		threeSlideDeckJSON(),
	}}
	o, _ := newTestOrchestrator(fake, &fakeDeckStore{}, &fakePublisher{})

	result, err := o.RunTurn(context.Background(), &TurnInput{
		UserPrompt:     "Make me a 3-slide deck on binary search",
		MessageHistory: []Message{{Role: "user", Content: "Make me a 3-slide deck on binary search"}},
		Provider:       "openai",
	})
	require.NoError(t, err)

	assert.Equal(t, CategoryGenerateSlides, result.Category)
	assert.Equal(t, TurnStateCompleted, result.State)

	require.NotNil(t, result.SlideContent)
	assert.Len(t, result.SlideContent.Slides, 3)
	assert.Equal(t, result.SlideContent.UserMessage, result.FinalResponse)
	assert.NotEmpty(t, result.ExpandedResponse)
	assert.Nil(t, result.Stream)
}

// 幂等：相同历史与确定性模型两次生成出结构相同的文稿
func TestTurnGenerateSlidesIdempotent(t *testing.T) {
	run := func() *TurnResult {
		fake := &fakeChatModel{responses: []string{
			classifierJSON("generate_slide_content", ""),
			threeSlideDeckJSON(),
		}}
		o, _ := newTestOrchestrator(fake, &fakeDeckStore{}, &fakePublisher{})
		result, err := o.RunTurn(context.Background(), &TurnInput{
			UserPrompt:     "Make me a 3-slide deck on binary search",
			MessageHistory: []Message{{Role: "user", Content: "Make me a 3-slide deck on binary search"}},
			Provider:       "openai",
		})
		require.NoError(t, err)
		return result
	}

	first := run()
	second := run()

	assert.Equal(t, len(first.SlideContent.Slides), len(second.SlideContent.Slides))
	assert.Equal(t, first.SlideContent.SlideIDs(), second.SlideContent.SlideIDs())
	for i := range first.SlideContent.Slides {
		a := first.SlideContent.Slides[i]
		b := second.SlideContent.Slides[i]
		require.Len(t, b.ContentBlocks, len(a.ContentBlocks))
		for j := range a.ContentBlocks {
			assert.Equal(t, a.ContentBlocks[j].Kind(), b.ContentBlocks[j].Kind())
		}
	}
}

// Scenario: 澄清分类产出非空 finalResponse，无增量流，文稿不变
func TestTurnClarification(t *testing.T) {
	fake := &fakeChatModel{responses: []string{
		classifierJSON("clarification", "too vague"),
		"What audience is the presentation for?",
	}}
	o, _ := newTestOrchestrator(fake, &fakeDeckStore{}, &fakePublisher{})

	prior := sampleDeck()
	result, err := o.RunTurn(context.Background(), &TurnInput{
		UserPrompt:     "make slides",
		MessageHistory: []Message{{Role: "user", Content: "make slides"}},
		SlideContent:   prior,
		Provider:       "openai",
	})
	require.NoError(t, err)

	assert.Equal(t, CategoryClarification, result.Category)
	assert.NotEmpty(t, result.FinalResponse)
	assert.Nil(t, result.Stream)
	assert.Same(t, prior, result.SlideContent)
}

// Scenario: 枚举外分类（banana）静默终止，不调用任何生成器，状态不变
func TestTurnUnknownCategoryTerminates(t *testing.T) {
	fake := &fakeChatModel{responses: []string{
		classifierJSON("banana", "???"),
	}}
	o, _ := newTestOrchestrator(fake, &fakeDeckStore{}, &fakePublisher{})

	prior := sampleDeck()
	history := []Message{{Role: "user", Content: "gibberish"}}
	result, err := o.RunTurn(context.Background(), &TurnInput{
		UserPrompt:     "gibberish",
		MessageHistory: history,
		SlideContent:   prior,
		Provider:       "openai",
	})
	require.NoError(t, err)

	assert.Equal(t, RouteTerminate, result.Route)
	assert.Equal(t, TurnStateCompleted, result.State)
	assert.Empty(t, result.FinalResponse)
	assert.Empty(t, result.ExpandedResponse)
	assert.Nil(t, result.Stream)
	assert.Same(t, prior, result.SlideContent)
	assert.Equal(t, history, result.MessageHistory)

	// 只有分类器调用了模型
	assert.Equal(t, 1, fake.generateCalls)
	assert.Zero(t, fake.streamCalls)
}

// 增量分类：返回消费一次的流，合并在流耗尽后一次完成
func TestTurnUpdateContentStreams(t *testing.T) {
	fake := &fakeChatModel{
		responses:    []string{classifierJSON("update_content", "tweak slide 2")},
		streamChunks: [][]string{{"Updated ", "content ", "here."}},
	}
	o, _ := newTestOrchestrator(fake, &fakeDeckStore{}, &fakePublisher{})

	prior := sampleDeck()
	history := []Message{{Role: "user", Content: "original ask"}}
	result, err := o.RunTurn(context.Background(), &TurnInput{
		UserPrompt:     "add more detail to slide 2",
		MessageHistory: history,
		SlideContent:   prior,
		Provider:       "openai",
	})
	require.NoError(t, err)

	assert.Equal(t, CategoryUpdateContent, result.Category)
	require.NotNil(t, result.Stream)
	assert.Empty(t, result.FinalResponse)
	// 合并前历史保持输入原样
	assert.Equal(t, history, result.MessageHistory)

	// 顺序消费且不可收回
	var b strings.Builder
	for {
		msg, err := result.Stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		b.WriteString(msg.Content)
	}
	result.Stream.Close()
	assert.Equal(t, "Updated content here.", b.String())

	result.MergeIncremental("add more detail to slide 2", b.String())
	require.Len(t, result.MessageHistory, len(history)+2)
	assert.Equal(t, "Updated content here.", result.MessageHistory[len(result.MessageHistory)-1].Content)

	// 修订生成器只读文稿，绝不回写
	assert.Same(t, prior, result.SlideContent)
}

func TestTurnGenerateForCodeStreams(t *testing.T) {
	fake := &fakeChatModel{
		responses:    []string{classifierJSON("generate_for_code", "explain this function")},
		streamChunks: [][]string{{"## Slide 1\n", "- point"}},
	}
	o, _ := newTestOrchestrator(fake, &fakeDeckStore{}, &fakePublisher{})

	result, err := o.RunTurn(context.Background(), &TurnInput{
		UserPrompt: "make slides about this code",
		Provider:   "openai",
	})
	require.NoError(t, err)
	assert.Equal(t, CategoryGenerateForCode, result.Category)
	require.NotNil(t, result.Stream)
	result.Stream.Close()
}

// Schema 违例：类型化错误向上抛，先前文稿保持不变
func TestTurnSchemaErrorLeavesDeckUntouched(t *testing.T) {
	// 重复的 slide id 违反文稿不变量
	badDeck := `{"title":"x","slides":[
		{"id":"s1","title":"a","content_blocks":[]},
		{"id":"s1","title":"b","content_blocks":[]}
	],"user_message":"dup"}`

	fake := &fakeChatModel{responses: []string{
		classifierJSON("generate_slide_content", ""),
		badDeck,
	}}
	o, _ := newTestOrchestrator(fake, &fakeDeckStore{}, &fakePublisher{})

	_, err := o.RunTurn(context.Background(), &TurnInput{
		UserPrompt: "make a deck",
		Provider:   "openai",
	})
	require.Error(t, err)

	var schemaErr *GenerationSchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.NotEmpty(t, schemaErr.Raw)
}

// 模型调用失败：错误携带发生失败的分类
func TestTurnModelErrorCarriesCategory(t *testing.T) {
	fake := &fakeChatModel{
		responses: []string{classifierJSON("clarification", "")},
	}
	o, _ := newTestOrchestrator(fake, &fakeDeckStore{}, &fakePublisher{})

	// 澄清生成器无脚本可用，得到模型错误
	_, err := o.RunTurn(context.Background(), &TurnInput{
		UserPrompt: "hello",
		Provider:   "openai",
	})
	require.Error(t, err)

	var modelErr *ModelInvocationError
	require.True(t, errors.As(err, &modelErr))
	assert.Equal(t, CategoryClarification, modelErr.Category)
}

func TestTurnEmptyPromptRejected(t *testing.T) {
	o, _ := newTestOrchestrator(&fakeChatModel{}, &fakeDeckStore{}, &fakePublisher{})
	_, err := o.RunTurn(context.Background(), &TurnInput{UserPrompt: "  "})
	assert.Error(t, err)
}

func TestToAppError(t *testing.T) {
	appErr := ToAppError(&UnknownCategoryError{Value: "banana"})
	require.NotNil(t, appErr)
	assert.Equal(t, "4004", string(appErr.Code))

	appErr = ToAppError(&GenerationSchemaError{Err: errors.New("dup ids")})
	assert.Equal(t, "4003", string(appErr.Code))

	appErr = ToAppError(&ModelInvocationError{Category: CategoryClarification, Err: errors.New("boom")})
	assert.Equal(t, "4006", string(appErr.Code))
}
