package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"slidekit-ai-api/internal/application/prompt"
	"slidekit-ai-api/internal/domain/entity"
	einoobs "slidekit-ai-api/internal/observability/eino"
	"slidekit-ai-api/pkg/logger"
	"slidekit-ai-api/pkg/metrics"
)

// DeckGenerateInput 定义了文稿生成器的输入参数
type DeckGenerateInput struct {
	// Prompt 用户最新的输入消息
	Prompt string
	// MessageHistory 会话历史，生成器从中提炼文稿结构
	MessageHistory []Message

	// Provider/Model 指定使用的大模型
	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// DeckGenerateOutput 定义了文稿生成器的输出结果
type DeckGenerateOutput struct {
	// Deck 生成的结构化文稿，已通过不变量校验
	Deck *entity.Deck
	// Raw 模型原始输出 (JSON)，用于诊断展示
	Raw string
	// Meta Token 使用量等元数据
	Meta LLMUsageMeta
}

// DeckGenerator 实现结构化文稿生成。
// 它使用 Eino 编排一个 Chain，负责把会话历史转换为通过 Schema 校验的 Deck。
type DeckGenerator struct {
	factory ChatModelFactory

	chainOnce sync.Once
	chain     compose.Runnable[*DeckGenerateInput, *DeckGenerateOutput]
	chainErr  error
}

func NewDeckGenerator(factory ChatModelFactory) *DeckGenerator {
	return &DeckGenerator{factory: factory}
}

// Generate 执行生成流程：Prompt 渲染 -> LLM 调用 (Structured Output) -> 结果解析与校验
func (g *DeckGenerator) Generate(ctx context.Context, in *DeckGenerateInput) (*DeckGenerateOutput, error) {
	if g == nil || g.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := g.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

func formatDeckMessages(ctx context.Context, in *DeckGenerateInput) ([]*schema.Message, error) {
	tpl, err := defaultPromptRegistry.ChatTemplate(prompt.PromptSlideDeckV1)
	if err != nil {
		return nil, err
	}
	vars := map[string]any{
		"history_block": buildHistoryBlock(in.MessageHistory),
		"prompt":        strings.TrimSpace(in.Prompt),
	}
	return tpl.Format(ctx, vars)
}

// buildDeckModelOptions 构建 LLM 调用选项，强制启用 JSON Schema (Structured Outputs)
func buildDeckModelOptions(in *DeckGenerateInput, enableSchema bool) []model.Option {
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

	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   "slide_deck",
					"strict": false,
					"schema": deckJSONSchema(),
				},
			},
		}))
	}

	return opts
}

// deckJSONSchema 定义了期望 LLM 返回的文稿结构 Schema
func deckJSONSchema() map[string]any {
	contentBlock := map[string]any{
		"type":     "object",
		"required": []any{"type"},
		"properties": map[string]any{
			"type": map[string]any{
				"type": "string",
				"enum": []any{"text", "code", "image"},
			},
			"body":     map[string]any{"type": "string"},
			"language": map[string]any{"type": "string"},
			"query":    map[string]any{"type": "string"},
			"caption":  map[string]any{"type": "string"},
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []any{"title", "slides", "user_message"},
		"properties": map[string]any{
			"title":    map[string]any{"type": "string"},
			"subtitle": map[string]any{"type": "string"},
			"slides": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []any{"id", "title", "content_blocks"},
					"properties": map[string]any{
						"id":             map[string]any{"type": "string"},
						"title":          map[string]any{"type": "string"},
						"content_blocks": map[string]any{"type": "array", "items": contentBlock},
					},
				},
			},
			"user_message": map[string]any{"type": "string"},
		},
	}
}

type deckChainState struct {
	In       *DeckGenerateInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (g *DeckGenerator) getChain() (compose.Runnable[*DeckGenerateInput, *DeckGenerateOutput], error) {
	g.chainOnce.Do(func() {
		g.chain, g.chainErr = g.buildChain(context.Background())
	})
	return g.chain, g.chainErr
}

// buildChain 构建 Eino 处理链：Init -> Template -> LLM -> Finalize
func (g *DeckGenerator) buildChain(ctx context.Context) (compose.Runnable[*DeckGenerateInput, *DeckGenerateOutput], error) {
	chain := compose.NewChain[*DeckGenerateInput, *DeckGenerateOutput]()

	// 1. Init: 将外部输入封装进链内部状态
	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, in *DeckGenerateInput) (*deckChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			return &deckChainState{In: in}, nil
		}),
		compose.WithNodeName("slide_deck.init"),
	)

	// 2. Template: 加载 Prompt 模板并填充会话历史
	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *deckChainState) (*deckChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			msgs, err := formatDeckMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("slide_deck.template"),
	)

	// 3. LLM: 优先 Structured Output，不支持时降级为普通 JSON 模式重试
	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *deckChainState) (*deckChainState, error) {
			if st == nil || st.In == nil {
				return nil, fmt.Errorf("state is nil")
			}
			if g == nil || g.factory == nil {
				return nil, fmt.Errorf("llm factory not configured")
			}

			ctx = einoobs.WithWorkflowProvider(ctx, "slide_deck_generate", st.In.Provider)

			chatModel, err := g.factory.Get(ctx, st.In.Provider)
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildDeckModelOptions(st.In, true)...)
			if err != nil && isResponseFormatUnsupportedError(err) {
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildDeckModelOptions(st.In, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("slide_deck.llm"),
	)

	// 4. Finalize: 提取 JSON -> 反序列化 -> 不变量校验 -> 元数据收集
	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *deckChainState) (*DeckGenerateOutput, error) {
			if st == nil || st.In == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}

			raw := extractJSONObject(st.OutMsg.Content)
			if strings.TrimSpace(raw) == "" {
				metrics.DeckGenerationsTotal.WithLabelValues("schema_error").Inc()
				return nil, &GenerationSchemaError{Raw: raw, Err: fmt.Errorf("empty deck output")}
			}

			var out entity.Deck
			if err := json.Unmarshal([]byte(raw), &out); err != nil {
				logger.Error(ctx, "failed to unmarshal deck output", err,
					"raw", raw,
				)
				metrics.DeckGenerationsTotal.WithLabelValues("schema_error").Inc()
				return nil, &GenerationSchemaError{Raw: raw, Err: err}
			}
			if err := out.Validate(); err != nil {
				metrics.DeckGenerationsTotal.WithLabelValues("schema_error").Inc()
				return nil, &GenerationSchemaError{Raw: raw, Err: err}
			}

			meta := LLMUsageMeta{
				Provider:    strings.TrimSpace(st.In.Provider),
				Model:       strings.TrimSpace(st.In.Model),
				GeneratedAt: time.Now().UTC(),
			}
			if st.In.Temperature != nil {
				meta.Temperature = float64(*st.In.Temperature)
			}
			if st.OutMsg.ResponseMeta != nil && st.OutMsg.ResponseMeta.Usage != nil {
				meta.PromptTokens = st.OutMsg.ResponseMeta.Usage.PromptTokens
				meta.CompletionTokens = st.OutMsg.ResponseMeta.Usage.CompletionTokens
			}

			metrics.DeckGenerationsTotal.WithLabelValues("success").Inc()
			metrics.DeckSlidesGenerated.WithLabelValues("success").Observe(float64(len(out.Slides)))

			return &DeckGenerateOutput{
				Deck: &out,
				Raw:  raw,
				Meta: meta,
			}, nil
		}),
		compose.WithNodeName("slide_deck.finalize"),
	)

	return chain.Compile(ctx, compose.WithGraphName("slide_deck_generate_chain"))
}
