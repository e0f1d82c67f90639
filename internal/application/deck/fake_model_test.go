package deck

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"slidekit-ai-api/internal/domain/entity"
)

// fakeChatModel 按脚本返回固定回复的假模型
type fakeChatModel struct {
	mu sync.Mutex

	// responses Generate 按序消费的回复脚本
	responses []string
	// streamChunks Stream 按序消费的分片脚本
	streamChunks [][]string

	generateErr error
	streamErr   error

	generateCalls int
	streamCalls   int
}

func (m *fakeChatModel) Generate(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.generateCalls++
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	if len(m.responses) == 0 {
		return nil, fmt.Errorf("fake model: no scripted response left")
	}
	content := m.responses[0]
	m.responses = m.responses[1:]
	return schema.AssistantMessage(content, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, in []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamCalls++
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	if len(m.streamChunks) == 0 {
		return nil, fmt.Errorf("fake model: no scripted stream left")
	}
	chunks := m.streamChunks[0]
	m.streamChunks = m.streamChunks[1:]

	msgs := make([]*schema.Message, 0, len(chunks))
	for _, c := range chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs), nil
}

// fakeFactory ChatModelFactory 的测试实现
type fakeFactory struct {
	model model.BaseChatModel
	err   error

	mu   sync.Mutex
	gets int
}

func (f *fakeFactory) Get(ctx context.Context, name string) (model.BaseChatModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

// fakeDeckStore DeckStore 的测试实现，记录收到的保存入参
type fakeDeckStore struct {
	mu       sync.Mutex
	saved    []*SaveDeckInput
	existing map[string]*entity.DeckRecord
	saveErr  error
}

func (s *fakeDeckStore) SaveDeck(ctx context.Context, in *SaveDeckInput) (*entity.DeckRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	s.saved = append(s.saved, in)
	rec, err := entity.NewDeckRecord(in.UserID, in.SessionID, in.DisplayName, in.Deck, in.FallbackContent)
	if err != nil {
		return nil, err
	}
	rec.ID = fmt.Sprintf("rec-%d", len(s.saved))
	return rec, nil
}

func (s *fakeDeckStore) GetByDisplayName(ctx context.Context, userID, displayName string) (*entity.DeckRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.existing[displayName]; ok {
		return rec, nil
	}
	return nil, fmt.Errorf("deck record not found")
}

// fakePublisher ExportPublisher 的测试实现
type fakePublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *fakePublisher) PublishExport(ctx context.Context, recordID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, recordID)
	return nil
}

// 脚本化回复素材

func classifierJSON(category, information string) string {
	return fmt.Sprintf(`{"category":%q,"information":%q}`, category, information)
}

func threeSlideDeckJSON() string {
	return `{
		"title": "Binary Search",
		"subtitle": "",
		"slides": [
			{"id": "s1", "title": "Concept", "content_blocks": [{"type": "text", "body": "Sorted input, halve each step."}]},
			{"id": "s2", "title": "Code", "content_blocks": [{"type": "code", "language": "go", "body": "lo, hi := 0, len(xs)"}]},
			{"id": "s3", "title": "Complexity", "content_blocks": [{"type": "text", "body": "O(log n) comparisons."}]}
		],
		"user_message": "Here is a 3-slide deck on binary search."
	}`
}

func sampleDeck() *entity.Deck {
	deck, err := entity.ParseDeck([]byte(threeSlideDeckJSON()))
	if err != nil {
		panic(err)
	}
	return deck
}
