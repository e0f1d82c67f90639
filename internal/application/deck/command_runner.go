package deck

import (
	"context"
	"fmt"
	"strings"

	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/pkg/logger"
)

// CommandInput 命令执行器输入
type CommandInput struct {
	UserID    string
	SessionID string
	// Command 用户完整输入，以 "/" 开头
	Command        string
	MessageHistory []Message
	// CurrentDeck 当前文稿，可以为空
	CurrentDeck *entity.Deck
}

// CommandResult 命令执行结果
type CommandResult struct {
	// FinalResponse 返回给用户的回复，允许为空（无回复命令）
	FinalResponse string
	// SavedRecord /save 或 /export 创建的保存记录
	SavedRecord *entity.DeckRecord
}

// CommandRunner 斜杠命令执行器
// 未识别的命令在本地处理：生成一条诊断性助手消息，不向调用方抛错
type CommandRunner struct {
	store     DeckStore
	publisher ExportPublisher
}

func NewCommandRunner(store DeckStore, publisher ExportPublisher) *CommandRunner {
	return &CommandRunner{store: store, publisher: publisher}
}

// Run 按前缀匹配分发命令
func (r *CommandRunner) Run(ctx context.Context, in *CommandInput) (*CommandResult, error) {
	if r == nil {
		return nil, fmt.Errorf("command runner is nil")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	command, arg := splitCommand(in.Command)
	switch command {
	case "/save":
		return r.runSave(ctx, in, arg)
	case "/export":
		return r.runExport(ctx, in, arg)
	case "/help":
		return &CommandResult{FinalResponse: helpMessage()}, nil
	default:
		cmdErr := &UnrecognizedCommandError{Command: command}
		logger.Warn(ctx, "unrecognized slash command",
			"command", command,
			"session_id", in.SessionID,
		)
		return &CommandResult{FinalResponse: cmdErr.Error()}, nil
	}
}

// runSave 保存当前文稿；无文稿时保存最后一条助手消息
func (r *CommandRunner) runSave(ctx context.Context, in *CommandInput, arg string) (*CommandResult, error) {
	if r.store == nil {
		return nil, fmt.Errorf("deck store not configured")
	}

	record, err := r.store.SaveDeck(ctx, &SaveDeckInput{
		UserID:          in.UserID,
		SessionID:       in.SessionID,
		DisplayName:     pickDisplayName(arg, in.CurrentDeck),
		Deck:            in.CurrentDeck,
		FallbackContent: lastAssistantMessage(in.MessageHistory),
	})
	if err != nil {
		return nil, err
	}

	return &CommandResult{
		FinalResponse: fmt.Sprintf("Saved deck %q.", record.DisplayName),
		SavedRecord:   record,
	}, nil
}

// runExport 发布导出任务；目标记录不存在时先保存再导出
func (r *CommandRunner) runExport(ctx context.Context, in *CommandInput, arg string) (*CommandResult, error) {
	if r.store == nil {
		return nil, fmt.Errorf("deck store not configured")
	}
	if r.publisher == nil {
		return nil, fmt.Errorf("export publisher not configured")
	}

	displayName := pickDisplayName(arg, in.CurrentDeck)
	record, err := r.store.GetByDisplayName(ctx, in.UserID, displayName)
	if err != nil || record == nil {
		record, err = r.store.SaveDeck(ctx, &SaveDeckInput{
			UserID:          in.UserID,
			SessionID:       in.SessionID,
			DisplayName:     displayName,
			Deck:            in.CurrentDeck,
			FallbackContent: lastAssistantMessage(in.MessageHistory),
		})
		if err != nil {
			return nil, err
		}
	}

	if err := r.publisher.PublishExport(ctx, record.ID); err != nil {
		return nil, err
	}

	return &CommandResult{
		FinalResponse: fmt.Sprintf("Export of %q queued.", record.DisplayName),
		SavedRecord:   record,
	}, nil
}

func helpMessage() string {
	return strings.Join([]string{
		"Available commands:",
		"/save [name] - save the current deck (or the last assistant message if no deck exists)",
		"/export [name] - render a saved deck to markdown",
		"/help - show this message",
	}, "\n")
}

// splitCommand 拆分命令与参数，例如 "/save myDeck" -> ("/save", "myDeck")
func splitCommand(input string) (command string, arg string) {
	trimmed := strings.TrimSpace(input)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return trimmed, ""
	}
	command = fields[0]
	arg = strings.TrimSpace(strings.TrimPrefix(trimmed, command))
	return command, arg
}

// pickDisplayName 保存名优先级：显式参数 > 文稿标题 > 兜底名
func pickDisplayName(arg string, deck *entity.Deck) string {
	if strings.TrimSpace(arg) != "" {
		return strings.TrimSpace(arg)
	}
	if deck != nil && strings.TrimSpace(deck.Title) != "" {
		return strings.TrimSpace(deck.Title)
	}
	return "untitled-deck"
}

// lastAssistantMessage 从历史末尾找最近一条助手消息
func lastAssistantMessage(history []Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == entity.RoleAssistant {
			return history[i].Content
		}
	}
	return ""
}
