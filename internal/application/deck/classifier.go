package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"slidekit-ai-api/internal/application/prompt"
	einoobs "slidekit-ai-api/internal/observability/eino"
	"slidekit-ai-api/pkg/logger"
	"slidekit-ai-api/pkg/metrics"
)

var defaultPromptRegistry = prompt.NewRegistry()

// ClassifyInput 分类器输入
type ClassifyInput struct {
	UserPrompt     string
	MessageHistory []Message

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// ClassifyOutput 分类器输出
// Category 可能是枚举外的值，由分发器决定终止处理
type ClassifyOutput struct {
	Category    Category
	Information string
	// ShortCircuit 是否未经模型调用直接短路（以 "/" 开头的命令）
	ShortCircuit bool
	Meta         LLMUsageMeta
}

// classifierLLMEnvelope 用于解析 LLM 返回的 JSON 结构的信封
type classifierLLMEnvelope struct {
	Category    string `json:"category"`
	Information string `json:"information"`
}

// Classifier 轮次分类器：判定用户最新一轮想做什么
type Classifier struct {
	factory ChatModelFactory
}

func NewClassifier(factory ChatModelFactory) *Classifier {
	return &Classifier{factory: factory}
}

// Classify 执行分类。以 "/" 开头的输入直接短路为 slash_command，不调用模型；
// 其余情况做一次 Schema 约束的模型调用，枚举外的分类值原样向上传递。
func (c *Classifier) Classify(ctx context.Context, in *ClassifyInput) (*ClassifyOutput, error) {
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	// 命令短路：分类器绝不把普通文本判为 slash_command，命令也绝不进模型
	if strings.HasPrefix(strings.TrimSpace(in.UserPrompt), "/") {
		metrics.ClassificationsTotal.WithLabelValues(string(CategorySlashCommand), "short_circuit").Inc()
		return &ClassifyOutput{
			Category:     CategorySlashCommand,
			ShortCircuit: true,
		}, nil
	}

	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}

	ctx = einoobs.WithWorkflowProvider(ctx, "turn_classify", strings.TrimSpace(in.Provider))

	chatModel, err := c.factory.Get(ctx, strings.TrimSpace(in.Provider))
	if err != nil {
		return nil, err
	}

	msgs, err := formatClassifierMessages(ctx, in)
	if err != nil {
		return nil, err
	}

	// 策略：优先尝试 Structured Output (JSON Schema) 以确保格式稳定
	outMsg, err := chatModel.Generate(ctx, msgs, buildClassifierModelOptions(in, true)...)
	if err != nil && isResponseFormatUnsupportedError(err) {
		outMsg, err = chatModel.Generate(ctx, msgs, buildClassifierModelOptions(in, false)...)
	}
	if err != nil {
		return nil, err
	}
	if outMsg == nil {
		return nil, fmt.Errorf("empty llm response")
	}

	raw := extractJSONObject(outMsg.Content)
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("empty classifier output")
	}

	var env classifierLLMEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		logger.Error(ctx, "failed to unmarshal classifier output", err,
			"raw", raw,
		)
		return nil, fmt.Errorf("invalid classifier output: %w", err)
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

	category := Category(strings.TrimSpace(env.Category))
	metrics.ClassificationsTotal.WithLabelValues(string(category), "model").Inc()

	return &ClassifyOutput{
		Category:    category,
		Information: strings.TrimSpace(env.Information),
		Meta:        meta,
	}, nil
}

func formatClassifierMessages(ctx context.Context, in *ClassifyInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(prompt.PromptClassifierV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"history_block": buildHistoryBlock(in.MessageHistory),
		"prompt":        strings.TrimSpace(in.UserPrompt),
	}
	return tpl.Format(ctx, vars)
}

func buildClassifierModelOptions(in *ClassifyInput, enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 4)
	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if strings.TrimSpace(in.Model) != "" {
		opts = append(opts, model.WithModel(strings.TrimSpace(in.Model)))
	}

	// 强制要求模型返回符合 Schema 的 JSON 格式
	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "turn_classification",
					"strict": false,
					"schema": classifierJSONSchema(),
				},
			},
		}))
	}

	return opts
}

// classifierJSONSchema 定义了期望 LLM 返回的分类结构 Schema
func classifierJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"category", "information"},
		"properties": map[string]any{
			"category": map[string]any{
				"type": "string",
				"enum": []any{
					string(CategoryClarification),
					string(CategoryGenerateSlides),
					string(CategoryUpdateContent),
					string(CategoryGenerateForCode),
				},
			},
			"information": map[string]any{"type": "string"},
		},
	}
}
