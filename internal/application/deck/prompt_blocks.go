package deck

import (
	"strings"

	"slidekit-ai-api/internal/domain/entity"
)

// Message 会话消息，轮次输入里携带的历史单元
type Message struct {
	Role    entity.Role `json:"role"`
	Content string      `json:"content"`
}

// buildHistoryBlock 将会话历史渲染为提示词中的只读文本块
func buildHistoryBlock(history []Message) string {
	if len(history) == 0 {
		return "(no prior messages)"
	}

	var b strings.Builder
	for i := range history {
		m := history[i]
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		b.WriteString("<message role=\"")
		b.WriteString(string(m.Role))
		b.WriteString("\">\n")
		b.WriteString(m.Content)
		b.WriteString("\n</message>\n")
	}
	if b.Len() == 0 {
		return "(no prior messages)"
	}
	return strings.TrimSpace(b.String())
}

// buildDeckBlock 将当前文稿渲染为提示词中的只读 JSON 块
// 生成器只读取文稿上下文，绝不通过该路径回写文稿
func buildDeckBlock(deck *entity.Deck) string {
	if deck == nil {
		return "(no deck generated yet)"
	}
	serialized, err := deck.MarshalIndent()
	if err != nil || strings.TrimSpace(serialized) == "" {
		return "(no deck generated yet)"
	}
	return serialized
}
