// Package brainstorm 管理头脑风暴会话：装载历史、执行单轮、持久化轮次与文稿快照
package brainstorm

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"slidekit-ai-api/internal/application/deck"
	"slidekit-ai-api/internal/config"
	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/internal/domain/repository"
	"slidekit-ai-api/internal/infrastructure/persistence/redis"
	pkgerrors "slidekit-ai-api/pkg/errors"
	"slidekit-ai-api/pkg/logger"
)

// TurnRunner 单轮编排依赖（port），由 deck.Orchestrator 实现
type TurnRunner interface {
	RunTurn(ctx context.Context, in *deck.TurnInput) (*deck.TurnResult, error)
}

// streamingGuardTTL 流式标记的回收期限：消费方崩溃未调用 FinalizeStreamTurn 时，
// 超过该时长的标记视为遗留状态，不再阻塞新轮次。
const streamingGuardTTL = 5 * time.Minute

// Service 会话服务
type Service struct {
	sessions repository.BrainstormSessionRepository
	turns    repository.BrainstormTurnRepository
	tx       repository.Transactor
	runner   TurnRunner
	cache    *redis.Cache
	cfg      config.BrainstormConfig
}

func NewService(
	sessions repository.BrainstormSessionRepository,
	turns repository.BrainstormTurnRepository,
	tx repository.Transactor,
	runner TurnRunner,
	cache *redis.Cache,
	cfg config.BrainstormConfig,
) *Service {
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = 40
	}
	if cfg.SessionCacheTTL <= 0 {
		cfg.SessionCacheTTL = 10 * time.Minute
	}
	return &Service{
		sessions: sessions,
		turns:    turns,
		tx:       tx,
		runner:   runner,
		cache:    cache,
		cfg:      cfg,
	}
}

// TurnRequest 一轮对话请求
type TurnRequest struct {
	UserID    string
	SessionID string
	Prompt    string

	Provider    string
	Model       string
	Temperature *float32
	MaxTokens   *int
}

// TurnOutcome 一轮对话结果。
// Result.Stream 非空时调用方消费完流后必须调用 FinalizeStreamTurn。
type TurnOutcome struct {
	Session *entity.BrainstormSession
	Result  *deck.TurnResult
}

// CreateSession 创建会话
func (s *Service) CreateSession(ctx context.Context, userID, title string) (*entity.BrainstormSession, error) {
	session := entity.NewBrainstormSession(userID, strings.TrimSpace(title))
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to create session")
	}
	return session, nil
}

// GetSession 读取会话（带缓存），校验归属
func (s *Service) GetSession(ctx context.Context, userID, sessionID string) (*entity.BrainstormSession, error) {
	if s.cache != nil {
		raw, err := s.cache.GetOrLoad(ctx, redis.BuildSessionKey(sessionID), s.cfg.SessionCacheTTL, func() (interface{}, error) {
			return s.loadSession(ctx, sessionID)
		})
		if err == nil {
			var session entity.BrainstormSession
			if jsonErr := json.Unmarshal(raw, &session); jsonErr == nil {
				return s.checkOwner(&session, userID)
			}
		}
		// 缓存层故障时直接读库
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.checkOwner(session, userID)
}

// ListSessions 用户会话列表
func (s *Service) ListSessions(ctx context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.BrainstormSession], error) {
	result, err := s.sessions.ListByUser(ctx, userID, pagination)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to list sessions")
	}
	return result, nil
}

// ListTurns 会话轮次列表（时间正序）
func (s *Service) ListTurns(ctx context.Context, userID, sessionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.BrainstormTurn], error) {
	if _, err := s.GetSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	result, err := s.turns.ListBySession(ctx, sessionID, pagination)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to list turns")
	}
	return result, nil
}

// RunTurn 执行一轮对话。
// 会话行锁保证同一会话轮次串行；非流式分类在事务内完成持久化。
func (s *Service) RunTurn(ctx context.Context, req *TurnRequest) (*TurnOutcome, error) {
	var outcome *TurnOutcome

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		session, err := s.lockSession(txCtx, req.UserID, req.SessionID)
		if err != nil {
			return err
		}

		// 上一轮的增量流尚未合并时不允许开始新轮次
		if session.Status == entity.SessionStatusStreaming {
			if time.Since(session.UpdatedAt) < streamingGuardTTL {
				return pkgerrors.New(pkgerrors.CodeSessionBusy, "previous turn is still streaming")
			}
			logger.Warn(txCtx, "reclaiming stale streaming marker", "session_id", session.ID)
			session.Status = entity.SessionStatusActive
		}

		history, err := s.loadHistory(txCtx, session.ID)
		if err != nil {
			return err
		}

		currentDeck, err := session.Deck()
		if err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternalError, "failed to parse session deck")
		}

		result, err := s.runner.RunTurn(txCtx, &deck.TurnInput{
			UserID:         req.UserID,
			SessionID:      session.ID,
			UserPrompt:     req.Prompt,
			MessageHistory: history,
			SlideContent:   currentDeck,
			Provider:       req.Provider,
			Model:          req.Model,
			Temperature:    req.Temperature,
			MaxTokens:      req.MaxTokens,
		})
		if err != nil {
			return deck.ToAppError(err)
		}

		// 增量流在事务外消费，FinalizeStreamTurn 再落轮次；
		// streaming 标记保证合并完成前同一会话不会开始下一轮
		if result.Stream == nil {
			if err := s.persistTurnDelta(txCtx, session, history, result); err != nil {
				return err
			}
		} else {
			session.Status = entity.SessionStatusStreaming
			session.UpdatedAt = time.Now()
			if err := s.sessions.Update(txCtx, session); err != nil {
				return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to mark session streaming")
			}
		}

		outcome = &TurnOutcome{Session: session, Result: result}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateSession(ctx, req.SessionID)
	return outcome, nil
}

// FinalizeStreamTurn 增量流消费完毕后持久化本轮的两条消息并清除 streaming 标记。
// 流式轮次无论是否累积到内容都必须调用，否则会话会保持占用直到回收期限。
func (s *Service) FinalizeStreamTurn(ctx context.Context, req *TurnRequest, category deck.Category, accumulated string) error {
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		session, err := s.lockSession(txCtx, req.UserID, req.SessionID)
		if err != nil {
			return err
		}

		if err := s.appendTurn(txCtx, session.ID, entity.RoleUser, req.Prompt, string(category), nil); err != nil {
			return err
		}
		if strings.TrimSpace(accumulated) != "" {
			if err := s.appendTurn(txCtx, session.ID, entity.RoleAssistant, accumulated, string(category), nil); err != nil {
				return err
			}
		}

		if session.Status == entity.SessionStatusStreaming {
			session.Status = entity.SessionStatusActive
		}
		session.UpdatedAt = time.Now()
		if err := s.sessions.Update(txCtx, session); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to update session")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateSession(ctx, req.SessionID)
	return nil
}

func (s *Service) loadSession(ctx context.Context, sessionID string) (*entity.BrainstormSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to get session")
	}
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeSessionNotFound, "session not found")
	}
	return session, nil
}

func (s *Service) lockSession(ctx context.Context, userID, sessionID string) (*entity.BrainstormSession, error) {
	session, err := s.sessions.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to lock session")
	}
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeSessionNotFound, "session not found")
	}
	return s.checkOwner(session, userID)
}

func (s *Service) checkOwner(session *entity.BrainstormSession, userID string) (*entity.BrainstormSession, error) {
	if session.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "session belongs to another user")
	}
	return session, nil
}

// loadHistory 装载最近的轮次作为模型上下文
func (s *Service) loadHistory(ctx context.Context, sessionID string) ([]deck.Message, error) {
	turns, err := s.turns.ListRecentBySession(ctx, sessionID, s.cfg.MaxHistoryTurns)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to load history")
	}

	history := make([]deck.Message, 0, len(turns))
	for _, turn := range turns {
		if !turn.Role.Conversational() {
			continue
		}
		history = append(history, deck.Message{Role: turn.Role, Content: turn.Content})
	}
	return history, nil
}

// persistTurnDelta 持久化编排器新增的消息，并同步文稿快照与会话标题
func (s *Service) persistTurnDelta(ctx context.Context, session *entity.BrainstormSession, before []deck.Message, result *deck.TurnResult) error {
	meta := turnMetadata(result)
	for _, msg := range newMessages(result.MessageHistory, before) {
		if err := s.appendTurn(ctx, session.ID, msg.Role, msg.Content, string(result.Category), meta); err != nil {
			return err
		}
	}

	if result.SlideContent != nil {
		if s.cfg.MinSlides > 0 && len(result.SlideContent.Slides) < s.cfg.MinSlides {
			logger.Warn(ctx, "generated deck below minimum slide count",
				"session_id", session.ID,
				"slides", len(result.SlideContent.Slides),
				"min_slides", s.cfg.MinSlides)
		}
		if err := session.SetDeck(result.SlideContent); err != nil {
			return pkgerrors.Wrap(err, pkgerrors.CodeInternalError, "failed to snapshot deck")
		}
	}
	if session.Title == "" {
		session.Title = sessionTitleFromPrompt(result.MessageHistory, before)
	}
	session.UpdatedAt = time.Now()

	if err := s.sessions.Update(ctx, session); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to update session")
	}
	return nil
}

func (s *Service) appendTurn(ctx context.Context, sessionID string, role entity.Role, content, category string, metadata json.RawMessage) error {
	turn := entity.NewBrainstormTurn(sessionID, role, content, category, metadata)
	if err := s.turns.Create(ctx, turn); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeDatabaseError, "failed to persist turn")
	}
	return nil
}

func (s *Service) invalidateSession(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSession(ctx, sessionID); err != nil {
		logger.Warn(ctx, "failed to invalidate session cache", "session_id", sessionID, "error", err)
	}
}

func turnMetadata(result *deck.TurnResult) json.RawMessage {
	if result.Meta.Provider == "" && result.Meta.Model == "" {
		return nil
	}
	data, err := json.Marshal(map[string]interface{}{
		"provider":          result.Meta.Provider,
		"model":             result.Meta.Model,
		"prompt_tokens":     result.Meta.PromptTokens,
		"completion_tokens": result.Meta.CompletionTokens,
	})
	if err != nil {
		return nil
	}
	return data
}

// newMessages 取本轮新增的消息。编排器保证输出历史以输入历史为前缀；
// 长度不足时视为无新增。
func newMessages(after, before []deck.Message) []deck.Message {
	if len(after) <= len(before) {
		return nil
	}
	return after[len(before):]
}

// sessionTitleFromPrompt 用本轮用户输入充当会话标题
func sessionTitleFromPrompt(after, before []deck.Message) string {
	for _, msg := range newMessages(after, before) {
		if msg.Role == entity.RoleUser {
			return truncateRunes(strings.TrimSpace(msg.Content), 64)
		}
	}
	return ""
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
