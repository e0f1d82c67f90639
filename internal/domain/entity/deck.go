// Package entity 定义领域实体
package entity

import (
	"encoding/json"
	"fmt"
)

// BlockKind 内容块类型枚举
type BlockKind string

const (
	BlockKindText  BlockKind = "text"
	BlockKindCode  BlockKind = "code"
	BlockKindImage BlockKind = "image"
)

// ContentBlock 幻灯片内容块，封闭联合类型
// 每种块只携带自己的字段，类型标签为权威判据
type ContentBlock interface {
	Kind() BlockKind
	isContentBlock()
}

// TextBlock 纯文本内容块
type TextBlock struct {
	Body string `json:"body"`
}

func (TextBlock) Kind() BlockKind { return BlockKindText }
func (TextBlock) isContentBlock() {}

// MarshalJSON 序列化时写入类型标签
func (b TextBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type BlockKind `json:"type"`
		Body string    `json:"body"`
	}{BlockKindText, b.Body})
}

// CodeBlock 代码内容块
type CodeBlock struct {
	Language string `json:"language"`
	Body     string `json:"body"`
}

func (CodeBlock) Kind() BlockKind { return BlockKindCode }
func (CodeBlock) isContentBlock() {}

func (b CodeBlock) MarshalJSON() ([]byte, error) {
	lang := b.Language
	if lang == "" {
		lang = "python"
	}
	return json.Marshal(struct {
		Type     BlockKind `json:"type"`
		Language string    `json:"language"`
		Body     string    `json:"body"`
	}{BlockKindCode, lang, b.Body})
}

// ImageBlock 图片内容块，只保存检索词与说明，不做图片获取
type ImageBlock struct {
	Query   string `json:"query"`
	Caption string `json:"caption"`
}

func (ImageBlock) Kind() BlockKind { return BlockKindImage }
func (ImageBlock) isContentBlock() {}

func (b ImageBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    BlockKind `json:"type"`
		Query   string    `json:"query"`
		Caption string    `json:"caption,omitempty"`
	}{BlockKindImage, b.Query, b.Caption})
}

// NewTextBlock 创建文本块
func NewTextBlock(body string) ContentBlock {
	return TextBlock{Body: body}
}

// NewCodeBlock 创建代码块，语言为空时默认 python
func NewCodeBlock(language, body string) ContentBlock {
	if language == "" {
		language = "python"
	}
	return CodeBlock{Language: language, Body: body}
}

// NewImageBlock 创建图片块
func NewImageBlock(query, caption string) ContentBlock {
	return ImageBlock{Query: query, Caption: caption}
}

// unmarshalContentBlock 按类型标签还原内容块，未知标签报错
func unmarshalContentBlock(data []byte) (ContentBlock, error) {
	var probe struct {
		Type BlockKind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to probe content block type: %w", err)
	}

	switch probe.Type {
	case BlockKindText:
		var b TextBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal text block: %w", err)
		}
		return b, nil
	case BlockKindCode:
		var b CodeBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal code block: %w", err)
		}
		if b.Language == "" {
			b.Language = "python"
		}
		return b, nil
	case BlockKindImage:
		var b ImageBlock
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal image block: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown content block type: %q", probe.Type)
	}
}

// Slide 单张幻灯片
type Slide struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	ContentBlocks []ContentBlock `json:"content_blocks"`
}

// UnmarshalJSON 按标签分发还原内容块
func (s *Slide) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID            string            `json:"id"`
		Title         string            `json:"title"`
		ContentBlocks []json.RawMessage `json:"content_blocks"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.ID = raw.ID
	s.Title = raw.Title
	s.ContentBlocks = make([]ContentBlock, 0, len(raw.ContentBlocks))
	for _, rb := range raw.ContentBlocks {
		block, err := unmarshalContentBlock(rb)
		if err != nil {
			return fmt.Errorf("slide %s: %w", raw.ID, err)
		}
		s.ContentBlocks = append(s.ContentBlocks, block)
	}
	return nil
}

// Deck 幻灯片文稿，生成核心的结构化产物
type Deck struct {
	Title       string  `json:"title"`
	Subtitle    string  `json:"subtitle,omitempty"`
	Slides      []Slide `json:"slides"`
	UserMessage string  `json:"user_message,omitempty"`
}

// Validate 校验文稿不变量：至少一张幻灯片，幻灯片 ID 唯一
func (d *Deck) Validate() error {
	if len(d.Slides) == 0 {
		return fmt.Errorf("deck must contain at least one slide")
	}
	seen := make(map[string]struct{}, len(d.Slides))
	for i, slide := range d.Slides {
		if slide.ID == "" {
			return fmt.Errorf("slide at index %d has empty id", i)
		}
		if _, ok := seen[slide.ID]; ok {
			return fmt.Errorf("duplicate slide id: %s", slide.ID)
		}
		seen[slide.ID] = struct{}{}
	}
	return nil
}

// SlideIDs 按顺序返回全部幻灯片 ID
func (d *Deck) SlideIDs() []string {
	ids := make([]string, 0, len(d.Slides))
	for _, slide := range d.Slides {
		ids = append(ids, slide.ID)
	}
	return ids
}

// MarshalIndent 序列化为带缩进的 JSON，用于诊断展示
func (d *Deck) MarshalIndent() (string, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal deck: %w", err)
	}
	return string(data), nil
}

// ParseDeck 从 JSON 还原文稿并校验不变量
func ParseDeck(data []byte) (*Deck, error) {
	var deck Deck
	if err := json.Unmarshal(data, &deck); err != nil {
		return nil, fmt.Errorf("failed to unmarshal deck: %w", err)
	}
	if err := deck.Validate(); err != nil {
		return nil, err
	}
	return &deck, nil
}
