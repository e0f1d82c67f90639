package eino

import (
	"sync"

	einocallbacks "github.com/cloudwego/eino/callbacks"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"

	"slidekit-ai-api/internal/domain/repository"
)

var initOnce sync.Once

// Init 注册 Eino 全局 callbacks（进程级一次）。
// llmRepo 可以为 nil，此时不落使用量流水。
func Init(llmRepo repository.LLMUsageEventRepository) {
	initOnce.Do(func() {
		handler := cbtemplate.NewHandlerHelper().
			ChatModel(newChatModelCallbackHandler(llmRepo)).
			Handler()
		einocallbacks.AppendGlobalHandlers(handler)
	})
}
