// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// CollectionDeckSlides 幻灯片文稿片段集合
	CollectionDeckSlides = "deck_slides"

	// VectorDimension 向量维度（text-embedding-3-small）
	VectorDimension = 1536
)

// DeckSlidesSchema 幻灯片片段 Collection Schema
func DeckSlidesSchema() *entity.Schema {
	return &entity.Schema{
		CollectionName: CollectionDeckSlides,
		Description:    "Saved deck slide content for semantic search",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "128",
				},
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": "1536",
				},
			},
			{
				Name:     "user_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "record_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "slide_id",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "slide_title",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "512",
				},
			},
			{
				Name:     "text_content",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
		},
	}
}

// DeckSlideVector 幻灯片向量数据结构
type DeckSlideVector struct {
	ID          string    `json:"id"`
	Vector      []float32 `json:"vector"`
	UserID      string    `json:"user_id"`
	RecordID    string    `json:"record_id"`
	SlideID     string    `json:"slide_id"`
	SlideTitle  string    `json:"slide_title"`
	TextContent string    `json:"text_content"`
}

// PartitionName 生成用户分区名称
func PartitionName(userID string) string {
	return "user_" + userID
}
