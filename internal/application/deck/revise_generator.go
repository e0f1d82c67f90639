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

type ReviseGenerateInput struct {
	Prompt         string
	MessageHistory []Message
	// CurrentDeck 当前文稿，只读上下文；该生成器绝不回写文稿
	CurrentDeck *entity.Deck

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// ReviseGenerator 内容修订生成器：以增量流方式产出更新后的 markdown 内容
type ReviseGenerator struct {
	factory ChatModelFactory
}

func NewReviseGenerator(factory ChatModelFactory) *ReviseGenerator {
	return &ReviseGenerator{factory: factory}
}

// Stream 返回 Eino StreamReader；调用方负责 Close()。
// 约定：流可能在最后返回一个 Content 为空但包含 Usage 的消息，用于 Token 统计。
func (g *ReviseGenerator) Stream(ctx context.Context, in *ReviseGenerateInput) (*schema.StreamReader[*schema.Message], error) {
	if g == nil || g.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Provider) == "" {
		return nil, fmt.Errorf("provider is required")
	}

	ctx = einoobs.WithWorkflowProvider(ctx, "revise_stream", strings.TrimSpace(in.Provider))

	chatModel, err := g.factory.Get(ctx, strings.TrimSpace(in.Provider))
	if err != nil {
		return nil, err
	}

	msgs, err := formatReviseMessages(ctx, in)
	if err != nil {
		return nil, err
	}
	return chatModel.Stream(ctx, msgs, buildReviseModelOptions(in)...)
}

func formatReviseMessages(ctx context.Context, in *ReviseGenerateInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(prompt.PromptUpdateContentV1)
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

func buildReviseModelOptions(in *ReviseGenerateInput) []model.Option {
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
