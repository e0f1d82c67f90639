package deck

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"slidekit-ai-api/internal/application/prompt"
	einoobs "slidekit-ai-api/internal/observability/eino"
)

type ClarifyGenerateInput struct {
	Prompt         string
	MessageHistory []Message

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

type ClarifyGenerateOutput struct {
	Content string
	Meta    LLMUsageMeta
}

// ClarifyGenerator 澄清问题生成器：一次自由文本调用，产出 finalResponse
type ClarifyGenerator struct {
	factory ChatModelFactory
}

func NewClarifyGenerator(factory ChatModelFactory) *ClarifyGenerator {
	return &ClarifyGenerator{factory: factory}
}

func (g *ClarifyGenerator) Generate(ctx context.Context, in *ClarifyGenerateInput) (*ClarifyGenerateOutput, error) {
	if g == nil || g.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.Provider) == "" {
		return nil, fmt.Errorf("provider is required")
	}

	ctx = einoobs.WithWorkflowProvider(ctx, "clarify_generate", strings.TrimSpace(in.Provider))

	chatModel, err := g.factory.Get(ctx, strings.TrimSpace(in.Provider))
	if err != nil {
		return nil, err
	}

	msgs, err := formatClarifyMessages(ctx, in)
	if err != nil {
		return nil, err
	}

	outMsg, err := chatModel.Generate(ctx, msgs, buildClarifyModelOptions(in)...)
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}

	meta := LLMUsageMeta{
		Provider:    strings.TrimSpace(in.Provider),
		Model:       strings.TrimSpace(in.Model),
		GeneratedAt: time.Now().UTC(),
	}
	if in.Temperature != nil {
		meta.Temperature = float64(*in.Temperature)
	}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		meta.PromptTokens = outMsg.ResponseMeta.Usage.PromptTokens
		meta.CompletionTokens = outMsg.ResponseMeta.Usage.CompletionTokens
	}

	content := strings.TrimSpace(outMsg.Content)
	if content == "" {
		return nil, fmt.Errorf("empty clarification content")
	}

	return &ClarifyGenerateOutput{
		Content: content,
		Meta:    meta,
	}, nil
}

func formatClarifyMessages(ctx context.Context, in *ClarifyGenerateInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(prompt.PromptClarificationV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"history_block": buildHistoryBlock(in.MessageHistory),
		"prompt":        strings.TrimSpace(in.Prompt),
	}
	return tpl.Format(ctx, vars)
}

func buildClarifyModelOptions(in *ClarifyGenerateInput) []model.Option {
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
