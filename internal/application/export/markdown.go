// Package export 将幻灯片文稿渲染为 Markdown 并回写存储
package export

import (
	"fmt"
	"strings"

	"slidekit-ai-api/internal/domain/entity"
)

// RenderMarkdown 将文稿渲染为 Markdown 文本。
// 文稿标题一级标题、副标题二级标题，每页三级标题后跟内容块。
func RenderMarkdown(deck *entity.Deck) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", deck.Title)
	if deck.Subtitle != "" {
		fmt.Fprintf(&b, "## %s\n\n", deck.Subtitle)
	}

	for _, slide := range deck.Slides {
		fmt.Fprintf(&b, "### %s\n\n", slide.Title)
		for _, block := range slide.ContentBlocks {
			writeBlock(&b, block)
		}
	}

	if deck.UserMessage != "" {
		fmt.Fprintf(&b, "---\n\n*Generated based on your message:*\n\n%s\n\n", deck.UserMessage)
	}

	return b.String()
}

func writeBlock(b *strings.Builder, block entity.ContentBlock) {
	switch v := block.(type) {
	case entity.TextBlock:
		fmt.Fprintf(b, "%s\n\n", v.Body)
	case entity.CodeBlock:
		fmt.Fprintf(b, "```%s\n%s\n```\n\n", v.Language, v.Body)
	case entity.ImageBlock:
		fmt.Fprintf(b, "![%s](https://source.unsplash.com/featured/?%s)\n\n", v.Caption, v.Query)
	}
}
