package deck

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"slidekit-ai-api/internal/application/prompt"
	"slidekit-ai-api/internal/domain/entity"
	einoobs "slidekit-ai-api/internal/observability/eino"
)

type CodeDeckGenerateInput struct {
	Prompt         string
	MessageHistory []Message
	// CurrentDeck 当前文稿，只读上下文；该生成器绝不回写文稿
	CurrentDeck *entity.Deck

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// CodeDeckGenerator 代码主题生成器：从代码片段提炼幻灯片大纲，增量流式产出
type CodeDeckGenerator struct {
	factory ChatModelFactory
}

func NewCodeDeckGenerator(factory ChatModelFactory) *CodeDeckGenerator {
	return &CodeDeckGenerator{factory: factory}
}

// Stream 返回 Eino StreamReader；调用方负责 Close()。
func (g *CodeDeckGenerator) Stream(ctx context.Context, in *CodeDeckGenerateInput) (*schema.StreamReader[*schema.Message], error) {
	if g == nil || g.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Provider) == "" {
		return nil, fmt.Errorf("provider is required")
	}

	ctx = einoobs.WithWorkflowProvider(ctx, "code_deck_stream", strings.TrimSpace(in.Provider))

	chatModel, err := g.factory.Get(ctx, strings.TrimSpace(in.Provider))
	if err != nil {
		return nil, err
	}

	msgs, err := formatCodeDeckMessages(ctx, in)
	if err != nil {
		return nil, err
	}
	return chatModel.Stream(ctx, msgs, buildCodeDeckModelOptions(in)...)
}

func formatCodeDeckMessages(ctx context.Context, in *CodeDeckGenerateInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(prompt.PromptCodeDeckV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"history_block": buildHistoryBlock(in.MessageHistory),
		"deck_block":    buildDeckBlock(in.CurrentDeck),
		"prompt":        strings.TrimSpace(in.Prompt),
	}
	return tpl.Format(ctx, vars)
}

func buildCodeDeckModelOptions(in *CodeDeckGenerateInput) []model.Option {
	opts := make([]model.Option, 0, 3)
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if strings.TrimSpace(in.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(in.Model)))
	}
	return opts
}
