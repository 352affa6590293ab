package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/talkcircle/sentinel/internal/alert"
	"github.com/talkcircle/sentinel/internal/provider"
	"github.com/talkcircle/sentinel/internal/repository"
	"github.com/talkcircle/sentinel/internal/webhook"
)

// mockRepository is an in-memory store with the same cursor compare-and-set
// contract as the Postgres implementation.
type mockRepository struct {
	mu             sync.Mutex
	sessions       map[string]*repository.Session
	flags          []repository.FlaggedContent
	nextID         int
	insertFlagsErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{sessions: make(map[string]*repository.Session)}
}

func cloneSession(s *repository.Session) *repository.Session {
	c := *s
	c.Segments = append([]repository.Segment(nil), s.Segments...)
	return &c
}

func (m *mockRepository) CreateSession(_ context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s := &repository.Session{
		ID:                  fmt.Sprintf("session-%d", m.nextID),
		OwnerID:             input.OwnerID,
		OwnerDisplayName:    input.OwnerDisplayName,
		Status:              repository.SessionStatusDraft,
		Language:            input.Language,
		TopicPrompt:         input.TopicPrompt,
		TopicKeywords:       input.TopicKeywords,
		ParticipationConfig: input.ParticipationConfig,
	}
	m.sessions[s.ID] = s
	return cloneSession(s), nil
}

func (m *mockRepository) GetSession(_ context.Context, sessionID string) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (m *mockRepository) AppendSegments(_ context.Context, sessionID string, fromIndex int, segments []repository.Segment) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	if s.Status == repository.SessionStatusComplete {
		return nil, repository.ErrSessionCompleted
	}
	if s.Cursor != fromIndex {
		return nil, &repository.CursorConflictError{Expected: fromIndex, Actual: s.Cursor}
	}
	s.Segments = append(s.Segments, segments...)
	s.Cursor += len(segments)
	return cloneSession(s), nil
}

func (m *mockRepository) ReplaceSegments(_ context.Context, sessionID string, segments []repository.Segment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.Segments = append([]repository.Segment(nil), segments...)
	s.Cursor = len(segments)
	return nil
}

func (m *mockRepository) AddViolationCounts(_ context.Context, sessionID string, profanity, languagePolicy int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.ProfanityCount += profanity
	s.LanguageViolationCount += languagePolicy
	return nil
}

func (m *mockRepository) FinalizeSession(_ context.Context, input repository.FinalizeSessionInput) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[input.SessionID]
	if !ok {
		return false, repository.ErrSessionNotFound
	}
	if s.Status == repository.SessionStatusComplete {
		return false, nil
	}
	s.Status = repository.SessionStatusComplete
	s.DurationSeconds = input.DurationSeconds
	s.ParticipationBalance = input.ParticipationBalance
	score := input.TopicAdherenceScore
	s.TopicAdherenceScore = &score
	return true, nil
}

func (m *mockRepository) InsertFlags(_ context.Context, flags []repository.FlaggedContent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertFlagsErr != nil {
		return m.insertFlagsErr
	}
	m.flags = append(m.flags, flags...)
	return nil
}

func (m *mockRepository) ListFlagsBySessionID(_ context.Context, sessionID string) ([]repository.FlaggedContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []repository.FlaggedContent
	for _, f := range m.flags {
		if f.SessionID == sessionID {
			list = append(list, f)
		}
	}
	return list, nil
}

func (m *mockRepository) DeleteFlagsByTypes(_ context.Context, sessionID string, types []repository.FlagType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := make(map[repository.FlagType]struct{}, len(types))
	for _, t := range types {
		drop[t] = struct{}{}
	}
	kept := m.flags[:0]
	for _, f := range m.flags {
		if _, ok := drop[f.FlagType]; ok && f.SessionID == sessionID {
			continue
		}
		kept = append(kept, f)
	}
	m.flags = kept
	return nil
}

func (m *mockRepository) sessionFlags(sessionID string) []repository.FlaggedContent {
	list, _ := m.ListFlagsBySessionID(context.Background(), sessionID)
	return list
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []alert.Event
}

func (b *recordingBroadcaster) Publish(event alert.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBroadcaster) published() []alert.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]alert.Event(nil), b.events...)
}

type recordingCache struct {
	mu            sync.Mutex
	entries       map[string][]byte
	invalidations []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string][]byte)}
}

func (c *recordingCache) Get(_ context.Context, sessionID string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.entries[sessionID]
	return payload, ok
}

func (c *recordingCache) Set(_ context.Context, sessionID string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[sessionID] = payload
}

func (c *recordingCache) Invalidate(_ context.Context, sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, sessionID)
	c.invalidations = append(c.invalidations, sessionID)
}

type mockProvider struct {
	tokens []provider.Token
	err    error
	calls  int
}

func (p *mockProvider) FetchTranscript(_ context.Context, _ string) ([]provider.Token, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.tokens, nil
}

type recordingWebhookSender struct {
	mu       sync.Mutex
	payloads []webhook.SummaryPayload
}

func (s *recordingWebhookSender) SendSummary(_ context.Context, payload webhook.SummaryPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payloads = append(s.payloads, payload)
	return nil
}
