package search

import (
	"context"
	"fmt"
	"strings"

	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/pkg/logger"
)

const defaultEmbeddingBatch = 32

// Indexer 将已保存文稿的每一页写入向量索引
type Indexer struct {
	embedder Embedder
	vector   VectorRepository

	embeddingBatchSize int
}

func NewIndexer(embedder Embedder, vectorRepo VectorRepository, embeddingBatchSize int) *Indexer {
	bs := embeddingBatchSize
	if bs <= 0 {
		bs = defaultEmbeddingBatch
	}
	return &Indexer{
		embedder:           embedder,
		vector:             vectorRepo,
		embeddingBatchSize: bs,
	}
}

func (i *Indexer) Enabled() bool {
	return i != nil && i.embedder != nil && i.vector != nil
}

func (i *Indexer) ensureReady(ctx context.Context) error {
	if i == nil || i.vector == nil {
		return ErrVectorDisabled
	}
	return i.vector.EnsureDeckSlidesCollection(ctx)
}

// IndexRecord 为一条文稿记录重建向量索引。
// 先删除旧向量再写入，保证重复保存不残留旧页。
func (i *Indexer) IndexRecord(ctx context.Context, record *entity.DeckRecord) error {
	if record == nil {
		return fmt.Errorf("deck record is nil")
	}
	if strings.TrimSpace(record.UserID) == "" {
		return fmt.Errorf("deck record user_id is required")
	}
	if !i.Enabled() {
		return ErrVectorDisabled
	}
	if err := i.ensureReady(ctx); err != nil {
		return err
	}

	if err := i.vector.DeleteByRecord(ctx, record.UserID, record.ID); err != nil {
		return err
	}

	if len(record.DeckJSON) == 0 {
		// 自由文本记录不进索引；删除在前，避免旧向量残留
		return nil
	}

	deck, err := record.Deck()
	if err != nil {
		return fmt.Errorf("failed to parse deck for indexing: %w", err)
	}

	texts := make([]string, 0, len(deck.Slides))
	slides := make([]*VectorDeckSlide, 0, len(deck.Slides))
	for _, slide := range deck.Slides {
		text := slidePlainText(slide)
		if text == "" {
			continue
		}
		texts = append(texts, text)
		slides = append(slides, &VectorDeckSlide{
			ID:          record.ID + ":" + slide.ID,
			UserID:      record.UserID,
			RecordID:    record.ID,
			SlideID:     slide.ID,
			SlideTitle:  slide.Title,
			TextContent: text,
		})
	}
	if len(slides) == 0 {
		return nil
	}

	for start := 0; start < len(texts); start += i.embeddingBatchSize {
		end := start + i.embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := i.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("failed to embed slides: %w", err)
		}
		if len(vectors) != end-start {
			return fmt.Errorf("embedder returned %d vectors for %d inputs", len(vectors), end-start)
		}
		for j, vec := range vectors {
			slides[start+j].Vector = vec
		}
	}

	if err := i.vector.InsertSlideVectors(ctx, record.UserID, slides); err != nil {
		return err
	}

	logger.Info(ctx, "deck record indexed",
		"record_id", record.ID,
		"slides", len(slides))
	return nil
}

// slidePlainText 提取单页的可检索文本：标题、正文、代码、图片说明
func slidePlainText(slide entity.Slide) string {
	var parts []string
	if t := strings.TrimSpace(slide.Title); t != "" {
		parts = append(parts, t)
	}
	for _, block := range slide.ContentBlocks {
		switch v := block.(type) {
		case entity.TextBlock:
			if b := strings.TrimSpace(v.Body); b != "" {
				parts = append(parts, b)
			}
		case entity.CodeBlock:
			if b := strings.TrimSpace(v.Body); b != "" {
				parts = append(parts, b)
			}
		case entity.ImageBlock:
			if c := strings.TrimSpace(v.Caption); c != "" {
				parts = append(parts, c)
			} else if q := strings.TrimSpace(v.Query); q != "" {
				parts = append(parts, q)
			}
		}
	}
	return strings.Join(parts, "\n")
}
