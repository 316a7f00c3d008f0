package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"flowbot/internal/domain"
	models "flowbot/internal/domain/models/assistant"
	svc "flowbot/internal/domain/services/assistant"
)

// mockStore is an in-memory SessionStore with switchable failures.
type mockStore struct {
	mu        sync.Mutex
	sessions  map[string]*models.Session
	appended  []models.Message
	creates   int
	createErr error
	listErr   error
	getErr    error
	appendErr error
	// appendDelay slows the write of the message with that id
	appendDelay map[string]time.Duration
	// createDelay widens the window for concurrent Open calls
	createDelay time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{sessions: make(map[string]*models.Session)}
}

func (m *mockStore) ListSessions(ctx context.Context, caseID string) ([]models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.Session
	for _, s := range m.sessions {
		if s.CaseID == caseID {
			c := *s
			c.Messages = nil
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockStore) CreateSession(ctx context.Context, req *svc.CreateSessionRequest) (*models.Session, error) {
	if m.createDelay > 0 {
		time.Sleep(m.createDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.creates++
	s := &models.Session{
		ID:             "s-" + req.CaseID + "-" + string(rune('0'+m.creates)),
		CaseID:         req.CaseID,
		HypothesisMode: req.HypothesisMode,
		HypothesisText: req.HypothesisText,
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, m.creates, 0, time.UTC),
	}
	m.sessions[s.ID] = s
	c := *s
	return &c, nil
}

func (m *mockStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *s
	c.Messages = append([]models.Message(nil), s.Messages...)
	return &c, nil
}

func (m *mockStore) AppendMessage(ctx context.Context, id string, msg *models.Message) error {
	m.mu.Lock()
	delay := m.appendDelay[msg.ID]
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.appended = append(m.appended, *msg)
	if s, ok := m.sessions[id]; ok {
		s.Messages = append(s.Messages, *msg)
		s.MessageCount++
	}
	return nil
}

func (m *mockStore) add(s *models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
}

func (m *mockStore) appendedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.appended)
}

type mockAnalyzer struct {
	analysis *svc.CaseAnalysis
	err      error
}

func (a *mockAnalyzer) AnalyzeCase(ctx context.Context, caseID string) (*svc.CaseAnalysis, error) {
	return a.analysis, a.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(store *mockStore) *Manager {
	return NewManager(Options{
		Store:  store,
		Logger: testLogger(),
		Clock:  func() time.Time { return time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC) },
	})
}

func ts(day int) *time.Time {
	t := time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestListMostRecentFirst(t *testing.T) {
	store := newMockStore()
	store.add(&models.Session{ID: "old", CaseID: "c1", CreatedAt: *ts(1), LastMessageAt: ts(3)})
	store.add(&models.Session{ID: "new", CaseID: "c1", CreatedAt: *ts(2), LastMessageAt: ts(9)})
	store.add(&models.Session{ID: "idle", CaseID: "c1", CreatedAt: *ts(5)})
	store.add(&models.Session{ID: "other", CaseID: "c2", CreatedAt: *ts(30)})

	m := newTestManager(store)
	sessions, err := m.List(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"new", "idle", "old"}
	if len(sessions) != len(want) {
		t.Fatalf("got %d sessions", len(sessions))
	}
	for i, id := range want {
		if sessions[i].ID != id {
			t.Errorf("sessions[%d] = %s, want %s", i, sessions[i].ID, id)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	m := newTestManager(newMockStore())

	tests := []struct {
		name       string
		caseID     string
		hypothesis string
		wantErr    bool
	}{
		{"ok", "c1", "", false},
		{"missing case", "  ", "", true},
		{"hypothesis at limit", "c1", strings.Repeat("a", 500), false},
		{"hypothesis too long", "c1", strings.Repeat("a", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(context.Background(), tt.caseID, tt.hypothesis != "", tt.hypothesis)
			if tt.wantErr && !errors.Is(err, domain.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateOrEphemeralFallsBack(t *testing.T) {
	store := newMockStore()
	store.createErr = errors.New("connection refused")
	m := newTestManager(store)

	sess := m.CreateOrEphemeral(context.Background(), "c1", false, "")
	if !sess.Ephemeral || !strings.HasPrefix(sess.ID, EphemeralPrefix) {
		t.Fatalf("expected ephemeral session, got %+v", sess)
	}
	if !m.IsEphemeral(sess.ID) {
		t.Error("ephemeral session should be tracked")
	}

	m.AppendMessage(sess.ID, models.Message{ID: "m1", Role: models.RoleUser, Content: "hi"})
	m.Wait()
	if store.appendedCount() != 0 {
		t.Error("ephemeral session messages must not reach the store")
	}
}

func TestStartNewConversation(t *testing.T) {
	store := newMockStore()
	m := newTestManager(store)
	ctx := context.Background()

	sess, err := m.Start(ctx, "c1", true, "  Alex met Sam at the marina  ")
	if err != nil {
		t.Fatal(err)
	}
	if sess.Ephemeral || !sess.HypothesisMode || sess.HypothesisText != "Alex met Sam at the marina" {
		t.Errorf("session = %+v", sess)
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Kind != models.MessageKindWelcome {
		t.Errorf("expected welcome message, got %+v", sess.Messages)
	}

	if _, err := m.Start(ctx, "c1", true, strings.Repeat("a", 501)); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	store.createErr = errors.New("connection refused")
	sess, err = m.Start(ctx, "c1", false, "")
	if err != nil || !sess.Ephemeral {
		t.Errorf("expected ephemeral fallback, got %+v, %v", sess, err)
	}
}

func TestLoadNormalizesMessages(t *testing.T) {
	store := newMockStore()
	store.add(&models.Session{
		ID:     "s1",
		CaseID: "c1",
		Messages: []models.Message{
			{ID: "1", Role: models.RoleUser, Content: "q"},
			{ID: "2", Role: "bot", Content: "a", Loading: true},
			{ID: "3", Role: "system", Content: "note"},
		},
	})
	m := newTestManager(store)

	sess, err := m.Load(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Messages) != 3 {
		t.Fatalf("messages = %+v", sess.Messages)
	}
	for _, msg := range sess.Messages[1:] {
		if msg.Role != models.RoleAssistant || msg.Loading {
			t.Errorf("message %s not normalized: %+v", msg.ID, msg)
		}
	}
}

func TestLoadEmptySessionShowsWelcome(t *testing.T) {
	store := newMockStore()
	store.add(&models.Session{ID: "s1", CaseID: "c1"})

	tests := []struct {
		name      string
		analyzer  svc.CaseAnalyzer
		wantFirst string
	}{
		{"no analyzer", nil, defaultFollowups[0]},
		{"analysis fails", &mockAnalyzer{err: errors.New("boom")}, defaultFollowups[0]},
		{"crypto case", &mockAnalyzer{analysis: &svc.CaseAnalysis{HasCryptoAddresses: true}}, "Show all cryptocurrency addresses found in this case"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager(Options{Store: store, Analyzer: tt.analyzer, Logger: testLogger()})
			sess, err := m.Load(context.Background(), "s1")
			if err != nil {
				t.Fatal(err)
			}
			if len(sess.Messages) != 1 {
				t.Fatalf("expected exactly the welcome message, got %+v", sess.Messages)
			}
			w := sess.Messages[0]
			if w.Kind != models.MessageKindWelcome || !w.Synthetic || w.Persistable() {
				t.Errorf("unexpected welcome %+v", w)
			}
			if len(w.SuggestedFollowups) == 0 || w.SuggestedFollowups[0] != tt.wantFirst {
				t.Errorf("followups = %v", w.SuggestedFollowups)
			}
		})
	}
}

func TestOpenNoSessionsCreatesOne(t *testing.T) {
	store := newMockStore()
	m := newTestManager(store)

	sess, err := m.Open(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.HypothesisMode {
		t.Error("new session should start with hypothesis mode off")
	}
	if len(sess.Messages) != 1 || sess.Messages[0].Kind != models.MessageKindWelcome {
		t.Fatalf("expected exactly the welcome message, got %+v", sess.Messages)
	}
	if store.creates != 1 {
		t.Errorf("creates = %d, want 1", store.creates)
	}
}

func TestOpenLoadsMostRecent(t *testing.T) {
	store := newMockStore()
	store.add(&models.Session{ID: "old", CaseID: "c1", CreatedAt: *ts(1), LastMessageAt: ts(2),
		Messages: []models.Message{{ID: "o", Role: models.RoleUser, Content: "old"}}})
	store.add(&models.Session{ID: "recent", CaseID: "c1", CreatedAt: *ts(1), LastMessageAt: ts(8),
		Messages: []models.Message{{ID: "r", Role: models.RoleUser, Content: "recent"}}})
	m := newTestManager(store)

	sess, err := m.Open(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if sess.ID != "recent" || sess.Messages[0].Content != "recent" {
		t.Errorf("opened %+v", sess)
	}
	if store.creates != 0 {
		t.Error("should not create when a session exists")
	}
}

func TestOpenConcurrentCreatesOnce(t *testing.T) {
	store := newMockStore()
	store.createDelay = 50 * time.Millisecond
	m := newTestManager(store)

	var wg sync.WaitGroup
	ids := make([]string, 5)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := m.Open(context.Background(), "c1")
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = sess.ID
		}(i)
	}
	wg.Wait()

	if store.creates != 1 {
		t.Errorf("creates = %d, want 1", store.creates)
	}
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Errorf("callers got different sessions: %v", ids)
		}
	}
}

func TestOpenFallsBackWhenStoreDown(t *testing.T) {
	store := newMockStore()
	store.listErr = errors.New("timeout")
	store.createErr = errors.New("timeout")
	m := newTestManager(store)

	sess, err := m.Open(context.Background(), "c1")
	if err != nil {
		t.Fatal(err)
	}
	if !sess.Ephemeral || len(sess.Messages) != 1 {
		t.Errorf("expected ephemeral session with welcome, got %+v", sess)
	}
}

func TestAppendMessageSkipsAndSwallows(t *testing.T) {
	store := newMockStore()
	store.add(&models.Session{ID: "s1", CaseID: "c1"})
	m := newTestManager(store)

	m.AppendMessage("s1", models.Message{ID: "1", Role: models.RoleUser, Content: "q"})
	m.AppendMessage("s1", models.Message{ID: "2", Role: models.RoleAssistant, Loading: true})
	m.AppendMessage("s1", models.Message{ID: "3", Role: models.RoleAssistant, Synthetic: true})
	m.Wait()

	if got := store.appendedCount(); got != 1 {
		t.Errorf("appended = %d, want 1", got)
	}

	store.mu.Lock()
	store.appendErr = errors.New("disk full")
	store.mu.Unlock()

	m.AppendMessage("s1", models.Message{ID: "4", Role: models.RoleUser, Content: "q2"})
	m.Wait()
	if got := store.appendedCount(); got != 1 {
		t.Errorf("failed append should not be recorded, appended = %d", got)
	}
}

func TestAppendMessageKeepsSessionOrder(t *testing.T) {
	store := newMockStore()
	store.add(&models.Session{ID: "s1", CaseID: "c1"})
	store.add(&models.Session{ID: "s2", CaseID: "c1"})
	store.appendDelay = map[string]time.Duration{"question": 50 * time.Millisecond}
	m := newTestManager(store)

	m.AppendMessage("s1", models.Message{ID: "question", Role: models.RoleUser, Content: "Who called Sam?"})
	m.AppendMessage("s1", models.Message{ID: "answer", Role: models.RoleAssistant, Content: "Alex called Sam twice."})
	m.AppendMessage("s2", models.Message{ID: "other", Role: models.RoleUser, Content: "Where was Alex?"})
	m.Wait()

	sess, err := store.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	for _, msg := range sess.Messages {
		order = append(order, msg.ID)
	}
	if strings.Join(order, ",") != "question,answer" {
		t.Errorf("stored order = %v", order)
	}

	// A slow session does not hold up another.
	store.mu.Lock()
	first := store.appended[0].ID
	store.mu.Unlock()
	if first != "other" {
		t.Errorf("first write = %s, want other", first)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tails) != 0 {
		t.Errorf("write queues left behind: %d", len(m.tails))
	}
}
