package brainstorm

import (
	"context"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidekit-ai-api/internal/application/deck"
	"slidekit-ai-api/internal/config"
	"slidekit-ai-api/internal/domain/entity"
	"slidekit-ai-api/internal/domain/repository"
	pkgerrors "slidekit-ai-api/pkg/errors"
)

type fakeSessionRepo struct {
	byID  map[string]*entity.BrainstormSession
	locks int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byID: make(map[string]*entity.BrainstormSession)}
}

func (f *fakeSessionRepo) Create(_ context.Context, session *entity.BrainstormSession) error {
	if session.ID == "" {
		session.ID = "sess-1"
	}
	f.byID[session.ID] = session
	return nil
}

func (f *fakeSessionRepo) GetByID(_ context.Context, id string) (*entity.BrainstormSession, error) {
	return f.byID[id], nil
}

func (f *fakeSessionRepo) GetByIDForUpdate(_ context.Context, id string) (*entity.BrainstormSession, error) {
	f.locks++
	return f.byID[id], nil
}

func (f *fakeSessionRepo) Update(_ context.Context, session *entity.BrainstormSession) error {
	f.byID[session.ID] = session
	return nil
}

func (f *fakeSessionRepo) ListByUser(_ context.Context, userID string, pagination repository.Pagination) (*repository.PagedResult[*entity.BrainstormSession], error) {
	var sessions []*entity.BrainstormSession
	for _, s := range f.byID {
		if s.UserID == userID {
			sessions = append(sessions, s)
		}
	}
	return repository.NewPagedResult(sessions, int64(len(sessions)), pagination), nil
}

type fakeTurnRepo struct {
	turns []*entity.BrainstormTurn
}

func (f *fakeTurnRepo) Create(_ context.Context, turn *entity.BrainstormTurn) error {
	f.turns = append(f.turns, turn)
	return nil
}

func (f *fakeTurnRepo) ListBySession(_ context.Context, sessionID string, pagination repository.Pagination) (*repository.PagedResult[*entity.BrainstormTurn], error) {
	turns := f.bySession(sessionID)
	return repository.NewPagedResult(turns, int64(len(turns)), pagination), nil
}

func (f *fakeTurnRepo) ListRecentBySession(_ context.Context, sessionID string, limit int) ([]*entity.BrainstormTurn, error) {
	turns := f.bySession(sessionID)
	if len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return turns, nil
}

func (f *fakeTurnRepo) bySession(sessionID string) []*entity.BrainstormTurn {
	var turns []*entity.BrainstormTurn
	for _, t := range f.turns {
		if t.SessionID == sessionID {
			turns = append(turns, t)
		}
	}
	return turns
}

type passthroughTx struct{}

func (passthroughTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type scriptedRunner struct {
	results []*deck.TurnResult
	inputs  []*deck.TurnInput
	err     error
}

func (r *scriptedRunner) RunTurn(_ context.Context, in *deck.TurnInput) (*deck.TurnResult, error) {
	r.inputs = append(r.inputs, in)
	if r.err != nil {
		return nil, r.err
	}
	result := r.results[0]
	if len(r.results) > 1 {
		r.results = r.results[1:]
	}
	return result, nil
}

func newTestService(sessions *fakeSessionRepo, turns *fakeTurnRepo, runner TurnRunner) *Service {
	return NewService(sessions, turns, passthroughTx{}, runner, nil, config.BrainstormConfig{
		MaxHistoryTurns: 4,
		MinSlides:       3,
	})
}

func generatedDeck(t *testing.T) *entity.Deck {
	t.Helper()
	d, err := entity.ParseDeck([]byte(`{
		"title": "Sorting",
		"slides": [
			{"id": "s1", "title": "Bubble", "content_blocks": [{"type": "text", "body": "O(n^2)"}]},
			{"id": "s2", "title": "Merge", "content_blocks": [{"type": "text", "body": "O(n log n)"}]},
			{"id": "s3", "title": "Quick", "content_blocks": [{"type": "text", "body": "pivot"}]}
		],
		"user_message": "Here is a sorting deck."
	}`))
	require.NoError(t, err)
	return d
}

func TestRunTurnPersistsDelta(t *testing.T) {
	sessions := newFakeSessionRepo()
	turns := &fakeTurnRepo{}

	session := entity.NewBrainstormSession("user-1", "")
	require.NoError(t, sessions.Create(context.Background(), session))

	d := generatedDeck(t)
	runner := &scriptedRunner{results: []*deck.TurnResult{{
		Category:      deck.CategoryGenerateSlides,
		FinalResponse: "Here is a sorting deck.",
		SlideContent:  d,
		MessageHistory: []deck.Message{
			{Role: entity.RoleUser, Content: "make a sorting deck"},
			{Role: entity.RoleAssistant, Content: "Here is a sorting deck."},
		},
		Meta: deck.LLMUsageMeta{Provider: "openai", Model: "gpt-4o"},
	}}}

	svc := newTestService(sessions, turns, runner)
	outcome, err := svc.RunTurn(context.Background(), &TurnRequest{
		UserID:    "user-1",
		SessionID: session.ID,
		Prompt:    "make a sorting deck",
	})
	require.NoError(t, err)

	// 会话行锁在事务内获取
	assert.Equal(t, 1, sessions.locks)

	// 新增的两条消息落库，带分类与用量元数据
	require.Len(t, turns.turns, 2)
	assert.Equal(t, entity.RoleUser, turns.turns[0].Role)
	assert.Equal(t, entity.RoleAssistant, turns.turns[1].Role)
	assert.Equal(t, string(deck.CategoryGenerateSlides), turns.turns[1].Category)
	assert.NotEmpty(t, turns.turns[1].Metadata)

	// 文稿快照与标题更新
	stored := sessions.byID[session.ID]
	snapshot, err := stored.Deck()
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, "Sorting", snapshot.Title)
	assert.Equal(t, "make a sorting deck", stored.Title)

	assert.Equal(t, outcome.Result.SlideContent, d)
}

func TestRunTurnLoadsBoundedHistory(t *testing.T) {
	sessions := newFakeSessionRepo()
	turns := &fakeTurnRepo{}

	session := entity.NewBrainstormSession("user-1", "t")
	require.NoError(t, sessions.Create(context.Background(), session))

	for i := 0; i < 6; i++ {
		role := entity.RoleUser
		if i%2 == 1 {
			role = entity.RoleAssistant
		}
		turns.turns = append(turns.turns, entity.NewBrainstormTurn(session.ID, role, "m", "", nil))
	}

	runner := &scriptedRunner{results: []*deck.TurnResult{{
		Category:       deck.CategoryClarification,
		FinalResponse:  "what topic?",
		MessageHistory: []deck.Message{},
	}}}

	svc := newTestService(sessions, turns, runner)
	_, err := svc.RunTurn(context.Background(), &TurnRequest{
		UserID:    "user-1",
		SessionID: session.ID,
		Prompt:    "help",
	})
	require.NoError(t, err)

	// MaxHistoryTurns=4：只带最近 4 条
	require.Len(t, runner.inputs, 1)
	assert.Len(t, runner.inputs[0].MessageHistory, 4)
}

func TestRunTurnRejectsForeignSession(t *testing.T) {
	sessions := newFakeSessionRepo()
	session := entity.NewBrainstormSession("owner", "t")
	require.NoError(t, sessions.Create(context.Background(), session))

	svc := newTestService(sessions, &fakeTurnRepo{}, &scriptedRunner{})
	_, err := svc.RunTurn(context.Background(), &TurnRequest{
		UserID:    "intruder",
		SessionID: session.ID,
		Prompt:    "hi",
	})

	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodePermissionDenied, pkgerrors.AsAppError(err).Code)
}

func TestRunTurnSessionNotFound(t *testing.T) {
	svc := newTestService(newFakeSessionRepo(), &fakeTurnRepo{}, &scriptedRunner{})
	_, err := svc.RunTurn(context.Background(), &TurnRequest{
		UserID:    "user-1",
		SessionID: "missing",
		Prompt:    "hi",
	})

	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeSessionNotFound, pkgerrors.AsAppError(err).Code)
}

func TestFinalizeStreamTurn(t *testing.T) {
	sessions := newFakeSessionRepo()
	turns := &fakeTurnRepo{}

	session := entity.NewBrainstormSession("user-1", "t")
	require.NoError(t, sessions.Create(context.Background(), session))
	session.Status = entity.SessionStatusStreaming

	svc := newTestService(sessions, turns, &scriptedRunner{})
	err := svc.FinalizeStreamTurn(context.Background(), &TurnRequest{
		UserID:    "user-1",
		SessionID: session.ID,
		Prompt:    "tighten slide two",
	}, deck.CategoryUpdateContent, "Updated slide two.")
	require.NoError(t, err)

	require.Len(t, turns.turns, 2)
	assert.Equal(t, "tighten slide two", turns.turns[0].Content)
	assert.Equal(t, "Updated slide two.", turns.turns[1].Content)
	assert.Equal(t, string(deck.CategoryUpdateContent), turns.turns[0].Category)

	// streaming 标记被清除
	assert.Equal(t, entity.SessionStatusActive, sessions.byID[session.ID].Status)
}

func TestStreamTurnDefersPersistence(t *testing.T) {
	sessions := newFakeSessionRepo()
	turns := &fakeTurnRepo{}

	session := entity.NewBrainstormSession("user-1", "t")
	require.NoError(t, sessions.Create(context.Background(), session))

	runner := &scriptedRunner{results: []*deck.TurnResult{{
		Category: deck.CategoryUpdateContent,
		Stream:   emptyStream(),
	}}}

	svc := newTestService(sessions, turns, runner)
	outcome, err := svc.RunTurn(context.Background(), &TurnRequest{
		UserID:    "user-1",
		SessionID: session.ID,
		Prompt:    "tighten slide two",
	})
	require.NoError(t, err)

	require.NotNil(t, outcome.Result.Stream)
	assert.Empty(t, turns.turns)

	// 流式轮次在事务内打上 streaming 标记
	assert.Equal(t, entity.SessionStatusStreaming, sessions.byID[session.ID].Status)
}

func TestStreamTurnBlocksNextTurnUntilFinalized(t *testing.T) {
	sessions := newFakeSessionRepo()
	turns := &fakeTurnRepo{}

	session := entity.NewBrainstormSession("user-1", "t")
	require.NoError(t, sessions.Create(context.Background(), session))

	runner := &scriptedRunner{results: []*deck.TurnResult{
		{Category: deck.CategoryUpdateContent, Stream: emptyStream()},
		{Category: deck.CategoryClarification, FinalResponse: "which slide?", MessageHistory: []deck.Message{}},
	}}

	svc := newTestService(sessions, turns, runner)
	req := &TurnRequest{UserID: "user-1", SessionID: session.ID, Prompt: "tighten slide two"}

	_, err := svc.RunTurn(context.Background(), req)
	require.NoError(t, err)

	// 第一轮的流尚未合并，第二轮不得开始分类
	_, err = svc.RunTurn(context.Background(), &TurnRequest{
		UserID:    "user-1",
		SessionID: session.ID,
		Prompt:    "now add a summary slide",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeSessionBusy, pkgerrors.AsAppError(err).Code)
	assert.Len(t, runner.inputs, 1)

	require.NoError(t, svc.FinalizeStreamTurn(context.Background(), req, deck.CategoryUpdateContent, "Updated slide two."))

	// 合并完成后新轮次放行，且能看到第一轮的两条消息
	_, err = svc.RunTurn(context.Background(), &TurnRequest{
		UserID:    "user-1",
		SessionID: session.ID,
		Prompt:    "now add a summary slide",
	})
	require.NoError(t, err)
	require.Len(t, runner.inputs, 2)
	history := runner.inputs[1].MessageHistory
	require.Len(t, history, 2)
	assert.Equal(t, "tighten slide two", history[0].Content)
	assert.Equal(t, "Updated slide two.", history[1].Content)
}

func TestStreamTurnStaleMarkerReclaimed(t *testing.T) {
	sessions := newFakeSessionRepo()
	turns := &fakeTurnRepo{}

	session := entity.NewBrainstormSession("user-1", "t")
	require.NoError(t, sessions.Create(context.Background(), session))
	session.Status = entity.SessionStatusStreaming
	session.UpdatedAt = time.Now().Add(-10 * time.Minute)

	runner := &scriptedRunner{results: []*deck.TurnResult{{
		Category:       deck.CategoryClarification,
		FinalResponse:  "what topic?",
		MessageHistory: []deck.Message{},
	}}}

	svc := newTestService(sessions, turns, runner)
	_, err := svc.RunTurn(context.Background(), &TurnRequest{
		UserID:    "user-1",
		SessionID: session.ID,
		Prompt:    "help",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusActive, sessions.byID[session.ID].Status)
}

func emptyStream() *schema.StreamReader[*schema.Message] {
	return schema.StreamReaderFromArray([]*schema.Message{})
}
