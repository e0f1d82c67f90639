// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"slidekit-ai-api/internal/application/brainstorm"
	"slidekit-ai-api/internal/config"
	"slidekit-ai-api/internal/domain/repository"
	"slidekit-ai-api/internal/interfaces/http/dto"
	"slidekit-ai-api/internal/interfaces/http/middleware"
	"slidekit-ai-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

// finalizeTimeout 流式消费完成后落库的超时时间
const finalizeTimeout = 10 * time.Second

// BrainstormHandler 头脑风暴会话处理器
type BrainstormHandler struct {
	cfg *config.Config
	svc *brainstorm.Service
}

// NewBrainstormHandler 创建头脑风暴会话处理器
func NewBrainstormHandler(cfg *config.Config, svc *brainstorm.Service) *BrainstormHandler {
	return &BrainstormHandler{cfg: cfg, svc: svc}
}

// CreateSession 创建会话
func (h *BrainstormHandler) CreateSession(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	session, err := h.svc.CreateSession(ctx, userID, req.Title)
	if err != nil {
		logger.Error(ctx, "failed to create session", err)
		dto.AppError(c, err)
		return
	}

	dto.Created(c, dto.ToSessionResponse(session))
}

// ListSessions 获取会话列表
func (h *BrainstormHandler) ListSessions(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	pageReq := dto.BindPage(c)

	result, err := h.svc.ListSessions(ctx, userID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		logger.Error(ctx, "failed to list sessions", err)
		dto.AppError(c, err)
		return
	}

	dto.SuccessWithPage(c, dto.ToSessionListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetSession 获取会话详情
func (h *BrainstormHandler) GetSession(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)

	session, err := h.svc.GetSession(ctx, userID, sessionID)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	dto.Success(c, dto.ToSessionResponse(session))
}

// ListTurns 获取会话轮次列表
func (h *BrainstormHandler) ListTurns(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)
	pageReq := dto.BindPage(c)

	result, err := h.svc.ListTurns(ctx, userID, sessionID, repository.NewPagination(pageReq.Page, pageReq.PageSize))
	if err != nil {
		dto.AppError(c, err)
		return
	}

	dto.SuccessWithPage(c, dto.ToTurnListResponse(result.Items),
		dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// SendMessage 发送一条消息并执行一轮编排
// 澄清与迭代类回复以 SSE 流式返回，其余一次性返回 JSON。
func (h *BrainstormHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserIDFromGin(c)
	sessionID := dto.BindSessionID(c)

	var req dto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		dto.BadRequest(c, "prompt must not be empty")
		return
	}

	provider, model, err := resolveProviderModel(h.cfg, req.Provider, req.Model)
	if err != nil {
		dto.BadRequest(c, err.Error())
		return
	}

	turnReq := &brainstorm.TurnRequest{
		UserID:      userID,
		SessionID:   sessionID,
		Prompt:      strings.TrimSpace(req.Prompt),
		Provider:    provider,
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	outcome, err := h.svc.RunTurn(ctx, turnReq)
	if err != nil {
		dto.AppError(c, err)
		return
	}

	if outcome.Result.Stream != nil {
		h.streamTurn(c, turnReq, outcome)
		return
	}

	dto.Success(c, dto.ToTurnResultResponse(outcome.Result, outcome.Session))
}

// streamTurn 以 SSE 流式转发增量回复，消费完后合并并落库
func (h *BrainstormHandler) streamTurn(c *gin.Context, req *brainstorm.TurnRequest, outcome *brainstorm.TurnOutcome) {
	result := outcome.Result

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	var accumulated strings.Builder
	index := 0
	streamErr := error(nil)

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			// 客户端断开，已收到的部分仍然落库
			return false
		default:
		}

		msg, err := result.Stream.Recv()
		if errors.Is(err, io.EOF) {
			c.SSEvent("done", gin.H{
				"category":        string(result.Category),
				"classifier_info": result.ClassifierInfo,
				"total_chunks":    index,
			})
			return false
		}
		if err != nil {
			streamErr = err
			c.SSEvent("error", gin.H{"message": err.Error()})
			return false
		}

		accumulated.WriteString(msg.Content)
		c.SSEvent("content", gin.H{
			"chunk": msg.Content,
			"index": index,
		})
		index++
		return true
	})
	result.Stream.Close()

	ctx := c.Request.Context()
	if streamErr != nil {
		logger.Error(ctx, "stream turn interrupted", streamErr,
			"session_id", req.SessionID,
			"category", string(result.Category),
		)
	}
	if accumulated.Len() > 0 {
		result.MergeIncremental(req.Prompt, accumulated.String())
	}

	// 客户端断开不应阻止本轮落库；即使没有累积内容也要清除会话的 streaming 标记
	finalizeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := h.svc.FinalizeStreamTurn(finalizeCtx, req, result.Category, accumulated.String()); err != nil {
		logger.Error(ctx, "failed to finalize stream turn", err,
			"session_id", req.SessionID,
			"category", string(result.Category),
		)
	}
}
