package deck

import (
	"context"

	"github.com/cloudwego/eino/components/model"

	"slidekit-ai-api/internal/domain/entity"
)

// ChatModelFactory 定义应用层对 LLM ChatModel 的最小依赖（port）。
// 由基础设施层提供具体实现（例如 EinoFactory）。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.BaseChatModel, error)
}

// SaveDeckInput 保存文稿的入参
// Deck 可以为空：无文稿时以 FallbackContent（最后一条助手消息）作为保存内容
type SaveDeckInput struct {
	UserID          string
	SessionID       string
	DisplayName     string
	Deck            *entity.Deck
	FallbackContent string
}

// DeckStore 文稿持久化依赖（port），由基础设施层实现。
type DeckStore interface {
	SaveDeck(ctx context.Context, in *SaveDeckInput) (*entity.DeckRecord, error)
	GetByDisplayName(ctx context.Context, userID, displayName string) (*entity.DeckRecord, error)
}

// ExportPublisher 导出任务发布依赖（port），由消息层实现。
type ExportPublisher interface {
	PublishExport(ctx context.Context, recordID string) error
}
