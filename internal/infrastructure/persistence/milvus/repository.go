// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Repository 向量检索仓储
type Repository struct {
	client *Client
}

// NewRepository 创建向量检索仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// SearchParams 检索参数
type SearchParams struct {
	UserID      string
	QueryVector []float32
	TopK        int
}

// SearchResult 检索结果
type SearchResult struct {
	ID          string
	Score       float32
	RecordID    string
	SlideID     string
	SlideTitle  string
	TextContent string
}

// CreateCollection 创建集合
func (r *Repository) CreateCollection(ctx context.Context, schema *entity.Schema) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateCollection",
		trace.WithAttributes(attribute.String("collection", schema.CollectionName)))
	defer span.End()

	collName := r.client.CollectionName(schema.CollectionName)
	schema.CollectionName = collName

	err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// CreateIndex 创建 HNSW 索引
func (r *Repository) CreateIndex(ctx context.Context, collection string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreateIndex",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	collName := r.client.CollectionName(collection)

	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	err = r.client.milvus.CreateIndex(ctx, collName, "vector", idx, false)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// CreatePartition 创建用户分区
func (r *Repository) CreatePartition(ctx context.Context, collection, userID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.CreatePartition",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.String("partition", PartitionName(userID)),
		))
	defer span.End()

	collName := r.client.CollectionName(collection)
	return r.client.milvus.CreatePartition(ctx, collName, PartitionName(userID))
}

// SearchSlides 检索幻灯片片段
func (r *Repository) SearchSlides(ctx context.Context, params *SearchParams) ([]*SearchResult, error) {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return nil, fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.SearchSlides",
		trace.WithAttributes(
			attribute.String("user_id", params.UserID),
			attribute.Int("top_k", params.TopK),
		))
	defer span.End()

	collName := r.client.CollectionName(CollectionDeckSlides)
	partitionName := PartitionName(params.UserID)

	// 分区尚未创建（用户还没保存过文稿）时直接返回空结果
	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return []*SearchResult{}, nil
	}

	filter := fmt.Sprintf(`user_id == "%s"`, params.UserID)

	sp, err := entity.NewIndexHNSWSearchParam(128)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		collName,
		[]string{partitionName},
		filter,
		[]string{"id", "record_id", "slide_id", "slide_title", "text_content"},
		[]entity.Vector{entity.FloatVector(params.QueryVector)},
		"vector",
		entity.COSINE,
		params.TopK,
		sp,
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var searchResults []*SearchResult
	for _, result := range results {
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{
				Score: result.Scores[i],
			}

			if idCol, ok := result.Fields.GetColumn("id").(*entity.ColumnVarChar); ok {
				sr.ID = idCol.Data()[i]
			}
			if recordCol, ok := result.Fields.GetColumn("record_id").(*entity.ColumnVarChar); ok {
				sr.RecordID = recordCol.Data()[i]
			}
			if slideCol, ok := result.Fields.GetColumn("slide_id").(*entity.ColumnVarChar); ok {
				sr.SlideID = slideCol.Data()[i]
			}
			if titleCol, ok := result.Fields.GetColumn("slide_title").(*entity.ColumnVarChar); ok {
				sr.SlideTitle = titleCol.Data()[i]
			}
			if textCol, ok := result.Fields.GetColumn("text_content").(*entity.ColumnVarChar); ok {
				sr.TextContent = textCol.Data()[i]
			}

			searchResults = append(searchResults, sr)
		}
	}

	span.SetAttributes(attribute.Int("result_count", len(searchResults)))
	return searchResults, nil
}

// InsertSlideVectors 插入幻灯片向量
func (r *Repository) InsertSlideVectors(ctx context.Context, userID string, vectors []*DeckSlideVector) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.InsertSlideVectors",
		trace.WithAttributes(
			attribute.String("user_id", userID),
			attribute.Int("count", len(vectors)),
		))
	defer span.End()

	if len(vectors) == 0 {
		return nil
	}

	collName := r.client.CollectionName(CollectionDeckSlides)
	partitionName := PartitionName(userID)

	// 确保分区存在
	has, _ := r.client.milvus.HasPartition(ctx, collName, partitionName)
	if !has {
		if err := r.CreatePartition(ctx, CollectionDeckSlides, userID); err != nil {
			return err
		}
	}

	ids := make([]string, len(vectors))
	embeddings := make([][]float32, len(vectors))
	userIDs := make([]string, len(vectors))
	recordIDs := make([]string, len(vectors))
	slideIDs := make([]string, len(vectors))
	slideTitles := make([]string, len(vectors))
	textContents := make([]string, len(vectors))

	for i, v := range vectors {
		ids[i] = v.ID
		embeddings[i] = v.Vector
		userIDs[i] = v.UserID
		recordIDs[i] = v.RecordID
		slideIDs[i] = v.SlideID
		slideTitles[i] = v.SlideTitle
		textContents[i] = v.TextContent
	}

	idCol := entity.NewColumnVarChar("id", ids)
	vectorCol := entity.NewColumnFloatVector("vector", VectorDimension, embeddings)
	userCol := entity.NewColumnVarChar("user_id", userIDs)
	recordCol := entity.NewColumnVarChar("record_id", recordIDs)
	slideCol := entity.NewColumnVarChar("slide_id", slideIDs)
	titleCol := entity.NewColumnVarChar("slide_title", slideTitles)
	textCol := entity.NewColumnVarChar("text_content", textContents)

	_, err := r.client.milvus.Insert(ctx, collName, partitionName,
		idCol, vectorCol, userCol, recordCol, slideCol, titleCol, textCol)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert slide vectors: %w", err)
	}

	return nil
}

// DeleteByRecord 删除某条文稿的全部向量（重新索引前调用）
func (r *Repository) DeleteByRecord(ctx context.Context, userID, recordID string) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	ctx, span := tracer.Start(ctx, "milvus.DeleteByRecord",
		trace.WithAttributes(attribute.String("record_id", recordID)))
	defer span.End()

	collName := r.client.CollectionName(CollectionDeckSlides)
	partitionName := PartitionName(userID)

	if has, err := r.client.milvus.HasPartition(ctx, collName, partitionName); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check partition: %w", err)
	} else if !has {
		return nil
	}

	filter := fmt.Sprintf(`record_id == "%s"`, recordID)

	if err := r.client.milvus.Delete(ctx, collName, partitionName, filter); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete slide vectors: %w", err)
	}
	return nil
}

// EnsureDeckSlidesCollection 确保 deck_slides 集合与索引可用（不存在则创建）。
// 约束：不会做 drop/rebuild 等破坏性操作。
func (r *Repository) EnsureDeckSlidesCollection(ctx context.Context) error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}

	exists, err := r.client.HasCollection(ctx, CollectionDeckSlides)
	if err != nil {
		return err
	}
	if !exists {
		if err := r.CreateCollection(ctx, DeckSlidesSchema()); err != nil {
			return err
		}
		// 新建集合时创建索引；若失败，允许后续由运维介入。
		_ = r.CreateIndex(ctx, CollectionDeckSlides)
	}

	return r.client.LoadCollection(ctx, CollectionDeckSlides)
}
