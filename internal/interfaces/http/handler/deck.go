// Package handler 提供 HTTP 请求处理器
package handler

import (
	"errors"

	"slidekit-ai-api/internal/application/deckstore"
	"slidekit-ai-api/internal/application/export"
	appsearch "slidekit-ai-api/internal/application/search"
	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/internal/domain/repository"
	"slidekit-ai-api/internal/interfaces/http/dto"
	"slidekit-ai-api/internal/interfaces/http/middleware"
	"slidekit-ai-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// DeckHandler 已保存文稿处理器
type DeckHandler struct {
	records   repository.DeckRecordRepository
	publisher *deckstore.ExportPublisher
	searchSvc *appsearch.Service
}

// NewDeckHandler 创建文稿处理器
func NewDeckHandler(records repository.DeckRecordRepository, publisher *deckstore.ExportPublisher, searchSvc *appsearch.Service) *DeckHandler {
	return &DeckHandler{
		records:   records,
		publisher: publisher,
		searchSvc: searchSvc,
	}
}

// ListDecks 获取文稿列表
func (h *DeckHandler) ListDecks(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	pageReq := dto.BindPage(c)

	result, err := h.records.ListByUser(ctx, userID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list decks", err)
		dto.InternalError(c, "failed to list decks")
		return
	}

	dto.SuccessWithPage(c, dto.ToDeckRecordListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetDeck 获取文稿详情
func (h *DeckHandler) GetDeck(c *gin.Context) {
	record, ok := h.loadOwnedRecord(c)
	if !ok {
		return
	}
	dto.Success(c, dto.ToDeckRecordResponse(record, true))
}

// GetDeckMarkdown 获取文稿 Markdown
// 异步导出未完成时按当前文稿内容即时渲染。
func (h *DeckHandler) GetDeckMarkdown(c *gin.Context) {
	record, ok := h.loadOwnedRecord(c)
	if !ok {
		return
	}

	markdown := record.Markdown
	if markdown == "" && len(record.DeckJSON) > 0 {
		deck, err := record.Deck()
		if err != nil {
			logger.Error(c.Request.Context(), "failed to parse saved deck", err, "record_id", record.ID)
			dto.InternalError(c, "failed to render deck markdown")
			return
		}
		markdown = export.RenderMarkdown(deck)
	}

	dto.Success(c, &dto.DeckMarkdownResponse{
		ID:       record.ID,
		Markdown: markdown,
	})
}

// ExportDeck 触发异步 Markdown 导出
func (h *DeckHandler) ExportDeck(c *gin.Context) {
	record, ok := h.loadOwnedRecord(c)
	if !ok {
		return
	}

	if err := h.publisher.PublishExport(c.Request.Context(), record.ID); err != nil {
		dto.AppError(c, err)
		return
	}

	dto.Accepted(c, &dto.ExportAcceptedResponse{
		RecordID: record.ID,
		Status:   "queued",
	})
}

// DeleteDeck 删除文稿
func (h *DeckHandler) DeleteDeck(c *gin.Context) {
	record, ok := h.loadOwnedRecord(c)
	if !ok {
		return
	}

	if err := h.records.Delete(c.Request.Context(), record.ID); err != nil {
		logger.Error(c.Request.Context(), "failed to delete deck", err, "record_id", record.ID)
		dto.InternalError(c, "failed to delete deck")
		return
	}

	dto.NoContent(c)
}

// SearchSlides 幻灯片语义检索
func (h *DeckHandler) SearchSlides(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.SearchSlidesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if h.searchSvc == nil || !h.searchSvc.Enabled() {
		dto.ServiceUnavailable(c, "semantic search is not enabled")
		return
	}

	out, err := h.searchSvc.Search(ctx, appsearch.SearchInput{
		UserID: userID,
		Query:  req.Query,
		TopK:   req.TopK,
	})
	if err != nil {
		if errors.Is(err, appsearch.ErrVectorDisabled) {
			dto.ServiceUnavailable(c, "semantic search is not enabled")
			return
		}
		dto.AppError(c, err)
		return
	}

	dto.Success(c, &dto.SearchSlidesResponse{Hits: out.Hits})
}

// loadOwnedRecord 加载文稿记录并校验属主
func (h *DeckHandler) loadOwnedRecord(c *gin.Context) (*entity.DeckRecord, bool) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	recordID := dto.BindRecordID(c)

	record, err := h.records.GetByID(ctx, recordID)
	if err != nil {
		logger.Error(ctx, "failed to get deck record", err, "record_id", recordID)
		dto.InternalError(c, "failed to get deck")
		return nil, false
	}
	if record == nil || record.UserID != userID {
		dto.NotFound(c, "deck not found")
		return nil, false
	}
	return record, true
}
