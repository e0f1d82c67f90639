package deck

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/pkg/logger"
	"slidekit-ai-api/pkg/metrics"
)

// TurnState 单轮处理状态
type TurnState string

const (
	TurnStateIdle        TurnState = "idle"
	TurnStateClassifying TurnState = "classifying"
	TurnStateDispatching TurnState = "dispatching"
	TurnStateGenerating  TurnState = "generating"
	TurnStateCompleted   TurnState = "completed"
)

// CanAdvanceTo 判定状态迁移是否合法。
// 每轮严格单向：Idle -> Classifying -> Dispatching -> (Generating ->) Completed。
func (s TurnState) CanAdvanceTo(next TurnState) bool {
	switch s {
	case TurnStateIdle:
		return next == TurnStateClassifying
	case TurnStateClassifying:
		return next == TurnStateDispatching
	case TurnStateDispatching:
		return next == TurnStateGenerating || next == TurnStateCompleted
	case TurnStateGenerating:
		return next == TurnStateCompleted
	default:
		return false
	}
}

// TurnInput 单轮输入
type TurnInput struct {
	UserID    string
	SessionID string

	UserPrompt     string
	MessageHistory []Message
	// SlideContent 当前文稿，可以为空
	SlideContent *entity.Deck

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// TurnResult 单轮结果。完成的一轮精确满足：
// FinalResponse 与 Stream 至多设置其一（无回复命令两者皆空）。
type TurnResult struct {
	Category Category
	Route    Route
	State    TurnState

	// FinalResponse 一次性完整回复
	FinalResponse string
	// ExpandedResponse 结构化产物的序列化形式，用于诊断展示
	ExpandedResponse string
	// Stream 增量回复流；只能消费一次，消费完调用 MergeIncremental 合并状态
	Stream *schema.StreamReader[*schema.Message]

	// SlideContent 本轮结束后的文稿（被替换或原样保留）
	SlideContent *entity.Deck
	// MessageHistory 合并后的会话历史；增量分类在 MergeIncremental 前保持输入原样
	MessageHistory []Message

	// SavedRecord 命令产生的保存记录
	SavedRecord *entity.DeckRecord
	// ClassifierInfo 分类器给出的解释
	ClassifierInfo string
	Meta           LLMUsageMeta
}

// Orchestrator 单轮编排器：分类 -> 分发 -> 生成 -> 合并
// 同一会话内的轮次由调用方借助会话行锁串行化，这里不做跨轮并发控制。
type Orchestrator struct {
	classifier *Classifier
	clarify    *ClarifyGenerator
	deckGen    *DeckGenerator
	revise     *ReviseGenerator
	codeDeck   *CodeDeckGenerator
	commands   *CommandRunner
}

func NewOrchestrator(
	classifier *Classifier,
	clarify *ClarifyGenerator,
	deckGen *DeckGenerator,
	revise *ReviseGenerator,
	codeDeck *CodeDeckGenerator,
	commands *CommandRunner,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		clarify:    clarify,
		deckGen:    deckGen,
		revise:     revise,
		codeDeck:   codeDeck,
		commands:   commands,
	}
}

// RunTurn 处理一轮输入。错误在 Generating -> Completed 边界统一转换：
// 返回类型化错误时，MessageHistory 与 SlideContent 均保持调用前的值。
func (o *Orchestrator) RunTurn(ctx context.Context, in *TurnInput) (*TurnResult, error) {
	if o == nil {
		return nil, fmt.Errorf("orchestrator is nil")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	if strings.TrimSpace(in.UserPrompt) == "" {
		return nil, fmt.Errorf("user prompt is empty")
	}

	started := time.Now()
	state := TurnStateIdle

	// Idle -> Classifying
	if err := advance(&state, TurnStateClassifying); err != nil {
		return nil, err
	}
	classified, err := o.classifier.Classify(ctx, &ClassifyInput{
		UserPrompt:     in.UserPrompt,
		MessageHistory: in.MessageHistory,
		Provider:       in.Provider,
		Model:          in.Model,
		Temperature:    in.Temperature,
		MaxTokens:      in.MaxTokens,
	})
	if err != nil {
		o.observeTurn("", "error", started)
		return nil, &ModelInvocationError{Category: "", Err: err}
	}

	// Classifying -> Dispatching
	if err := advance(&state, TurnStateDispatching); err != nil {
		return nil, err
	}
	route := Dispatch(classified.Category)

	result := &TurnResult{
		Category:       classified.Category,
		Route:          route,
		SlideContent:   in.SlideContent,
		MessageHistory: in.MessageHistory,
		ClassifierInfo: classified.Information,
		Meta:           classified.Meta,
	}

	switch route {
	case RouteTerminate:
		// 未知分类：静默终止，不报错，但要可观测
		diag := &UnknownCategoryError{Value: string(classified.Category)}
		logger.Warn(ctx, "terminating turn for unknown category",
			"category", string(classified.Category),
			"session_id", in.SessionID,
			"diagnostic", diag.Error(),
		)
		if err := advance(&state, TurnStateCompleted); err != nil {
			return nil, err
		}
		result.State = state
		o.observeTurn(string(classified.Category), "terminated", started)
		return result, nil

	case RouteCommand:
		if err := advance(&state, TurnStateGenerating); err != nil {
			return nil, err
		}
		cmdResult, err := o.commands.Run(ctx, &CommandInput{
			UserID:         in.UserID,
			SessionID:      in.SessionID,
			Command:        in.UserPrompt,
			MessageHistory: in.MessageHistory,
			CurrentDeck:    in.SlideContent,
		})
		if err := advance(&state, TurnStateCompleted); err != nil {
			return nil, err
		}
		if err != nil {
			o.observeTurn(string(classified.Category), "error", started)
			return nil, err
		}
		result.State = state
		result.FinalResponse = cmdResult.FinalResponse
		result.SavedRecord = cmdResult.SavedRecord
		result.MessageHistory = mergeFinal(in.MessageHistory, in.UserPrompt, cmdResult.FinalResponse)
		o.observeTurn(string(classified.Category), "success", started)
		return result, nil

	case RouteGenerator:
		if err := advance(&state, TurnStateGenerating); err != nil {
			return nil, err
		}
		if err := o.generate(ctx, in, classified.Category, result); err != nil {
			// Generating -> Completed 边界的错误转换：历史与文稿均未动
			o.observeTurn(string(classified.Category), "error", started)
			return nil, err
		}
		if err := advance(&state, TurnStateCompleted); err != nil {
			return nil, err
		}
		result.State = state
		o.observeTurn(string(classified.Category), "success", started)
		return result, nil

	default:
		return nil, fmt.Errorf("unreachable route: %s", route)
	}
}

// generate 调用分类对应的生成器并把产物写进 result
func (o *Orchestrator) generate(ctx context.Context, in *TurnInput, category Category, result *TurnResult) error {
	switch category {
	case CategoryClarification:
		out, err := o.clarify.Generate(ctx, &ClarifyGenerateInput{
			Prompt:         in.UserPrompt,
			MessageHistory: in.MessageHistory,
			Provider:       in.Provider,
			Model:          in.Model,
			Temperature:    in.Temperature,
			MaxTokens:      in.MaxTokens,
		})
		if err != nil {
			return &ModelInvocationError{Category: category, Err: err}
		}
		result.FinalResponse = out.Content
		result.MessageHistory = mergeFinal(in.MessageHistory, in.UserPrompt, out.Content)
		result.Meta = out.Meta
		return nil

	case CategoryGenerateSlides:
		out, err := o.deckGen.Generate(ctx, &DeckGenerateInput{
			Prompt:         in.UserPrompt,
			MessageHistory: in.MessageHistory,
			Provider:       in.Provider,
			Model:          in.Model,
			Temperature:    in.Temperature,
			MaxTokens:      in.MaxTokens,
		})
		if err != nil {
			var schemaErr *GenerationSchemaError
			if errors.As(err, &schemaErr) {
				return schemaErr
			}
			return &ModelInvocationError{Category: category, Err: err}
		}
		serialized, serr := out.Deck.MarshalIndent()
		if serr != nil {
			return &GenerationSchemaError{Raw: out.Raw, Err: serr}
		}
		// 唯一会替换文稿的生成器
		result.FinalResponse = out.Deck.UserMessage
		result.ExpandedResponse = serialized
		result.SlideContent = out.Deck
		result.MessageHistory = mergeFinal(in.MessageHistory, in.UserPrompt, out.Deck.UserMessage)
		result.Meta = out.Meta
		return nil

	case CategoryUpdateContent:
		reader, err := o.revise.Stream(ctx, &ReviseGenerateInput{
			Prompt:         in.UserPrompt,
			MessageHistory: in.MessageHistory,
			CurrentDeck:    in.SlideContent,
			Provider:       in.Provider,
			Model:          in.Model,
			Temperature:    in.Temperature,
			MaxTokens:      in.MaxTokens,
		})
		if err != nil {
			return &ModelInvocationError{Category: category, Err: err}
		}
		result.Stream = reader
		return nil

	case CategoryGenerateForCode:
		reader, err := o.codeDeck.Stream(ctx, &CodeDeckGenerateInput{
			Prompt:         in.UserPrompt,
			MessageHistory: in.MessageHistory,
			CurrentDeck:    in.SlideContent,
			Provider:       in.Provider,
			Model:          in.Model,
			Temperature:    in.Temperature,
			MaxTokens:      in.MaxTokens,
		})
		if err != nil {
			return &ModelInvocationError{Category: category, Err: err}
		}
		result.Stream = reader
		return nil

	default:
		return fmt.Errorf("no generator for category: %s", category)
	}
}

// MergeIncremental 在增量流消费完毕后一次性合并会话状态。
// 增量片段只向前、不收回；这里是唯一的合并点，保证失败的流不会留下半更新的历史。
func (r *TurnResult) MergeIncremental(userPrompt, accumulated string) {
	if r == nil {
		return
	}
	r.MessageHistory = mergeFinal(r.MessageHistory, userPrompt, accumulated)
}

// mergeFinal 原子合并：一次性追加 user 与 assistant 两条消息
func mergeFinal(history []Message, userPrompt, assistantReply string) []Message {
	merged := make([]Message, 0, len(history)+2)
	merged = append(merged, history...)
	merged = append(merged, Message{Role: entity.RoleUser, Content: userPrompt})
	if strings.TrimSpace(assistantReply) != "" {
		merged = append(merged, Message{Role: entity.RoleAssistant, Content: assistantReply})
	}
	return merged
}

func advance(state *TurnState, next TurnState) error {
	if !state.CanAdvanceTo(next) {
		return fmt.Errorf("illegal turn state transition: %s -> %s", *state, next)
	}
	*state = next
	return nil
}

func (o *Orchestrator) observeTurn(category, status string, started time.Time) {
	if category == "" {
		category = "unclassified"
	}
	metrics.TurnsTotal.WithLabelValues(category, status).Inc()
	metrics.TurnDuration.WithLabelValues(category).Observe(time.Since(started).Seconds())
}
