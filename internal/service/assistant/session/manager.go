// Package session manages the chat sessions of a case: listing, creating,
// loading and best-effort persistence of messages.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"flowbot/internal/config"
	"flowbot/internal/domain"
	models "flowbot/internal/domain/models/assistant"
	svc "flowbot/internal/domain/services/assistant"
)

// EphemeralPrefix marks session ids that only exist in memory.
const EphemeralPrefix = "local-"

// Options configures a Manager
type Options struct {
	Store          svc.SessionStore
	Analyzer       svc.CaseAnalyzer // optional
	Logger         *slog.Logger
	Clock          func() time.Time
	PersistTimeout time.Duration
	DemoMode       bool
}

// Manager owns the session catalogue of the active case and delegates
// persistence to the store.
type Manager struct {
	store          svc.SessionStore
	analyzer       svc.CaseAnalyzer
	logger         *slog.Logger
	now            func() time.Time
	persistTimeout time.Duration
	demo           bool

	open singleflight.Group
	wg   sync.WaitGroup

	mu        sync.Mutex
	ephemeral map[string]struct{}
	// tails holds the last queued write per session
	tails map[string]chan struct{}
}

// NewManager creates a session manager
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.PersistTimeout == 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	return &Manager{
		store:          opts.Store,
		analyzer:       opts.Analyzer,
		logger:         opts.Logger,
		now:            opts.Clock,
		persistTimeout: opts.PersistTimeout,
		demo:           opts.DemoMode,
		ephemeral:      make(map[string]struct{}),
		tails:          make(map[string]chan struct{}),
	}
}

// List returns the sessions of a case, most recent first.
func (m *Manager) List(ctx context.Context, caseID string) ([]models.Session, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, fmt.Errorf("%w: case id is required", domain.ErrValidation)
	}
	sessions, err := m.store.ListSessions(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	models.SortByRecency(sessions)
	return sessions, nil
}

// Create creates a session in the store.
func (m *Manager) Create(ctx context.Context, caseID string, hypothesisMode bool, hypothesisText string) (*models.Session, error) {
	req := &svc.CreateSessionRequest{
		CaseID:         strings.TrimSpace(caseID),
		HypothesisMode: hypothesisMode,
		HypothesisText: strings.TrimSpace(hypothesisText),
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	sess, err := m.store.CreateSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	m.logger.Info("session created",
		"session_id", sess.ID,
		"case_id", sess.CaseID,
		"hypothesis_mode", sess.HypothesisMode,
	)
	return sess, nil
}

// CreateOrEphemeral creates a session, falling back to an unsaved in-memory
// session when the store fails so the user can always chat.
func (m *Manager) CreateOrEphemeral(ctx context.Context, caseID string, hypothesisMode bool, hypothesisText string) *models.Session {
	sess, err := m.Create(ctx, caseID, hypothesisMode, hypothesisText)
	if err == nil {
		return sess
	}

	m.logger.Warn("session create failed, using ephemeral session",
		"case_id", caseID,
		"error", err,
	)
	return m.newEphemeral(caseID, hypothesisMode, hypothesisText)
}

// Start begins a new conversation for a case and returns it ready to
// display. Invalid input is rejected; a store failure yields an ephemeral
// session.
func (m *Manager) Start(ctx context.Context, caseID string, hypothesisMode bool, hypothesisText string) (*models.Session, error) {
	req := &svc.CreateSessionRequest{
		CaseID:         strings.TrimSpace(caseID),
		HypothesisMode: hypothesisMode,
		HypothesisText: strings.TrimSpace(hypothesisText),
	}
	if err := validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	out := *m.CreateOrEphemeral(ctx, req.CaseID, req.HypothesisMode, req.HypothesisText)
	out.Messages = nil
	m.withWelcome(ctx, &out)
	return &out, nil
}

// Load returns a session with its messages converted for display. A
// session without messages gets a synthetic welcome message that is never
// persisted.
func (m *Manager) Load(ctx context.Context, sessionID string) (*models.Session, error) {
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	out := *sess
	out.Messages = make([]models.Message, 0, len(sess.Messages)+1)
	for _, msg := range sess.Messages {
		msg.Loading = false
		msg.Synthetic = false
		if msg.Role != models.RoleUser {
			msg.Role = models.RoleAssistant
		}
		out.Messages = append(out.Messages, msg)
	}
	m.withWelcome(ctx, &out)
	return &out, nil
}

// Open applies the startup policy for a case: load the most recent session
// if one exists, otherwise create one. Concurrent calls for the same case
// share a single decision, so one initial load never creates two sessions.
func (m *Manager) Open(ctx context.Context, caseID string) (*models.Session, error) {
	if strings.TrimSpace(caseID) == "" {
		return nil, fmt.Errorf("%w: case id is required", domain.ErrValidation)
	}

	v, err, shared := m.open.Do(caseID, func() (interface{}, error) {
		return m.openOnce(ctx, caseID), nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		m.logger.Debug("session open shared with concurrent caller", "case_id", caseID)
	}
	return cloneSession(v.(*models.Session)), nil
}

func (m *Manager) openOnce(ctx context.Context, caseID string) *models.Session {
	sessions, err := m.List(ctx, caseID)
	if err != nil {
		m.logger.Warn("session list failed, starting a new session",
			"case_id", caseID,
			"error", err,
		)
	}

	if len(sessions) > 0 {
		sess, err := m.Load(ctx, sessions[0].ID)
		if err == nil {
			return sess
		}
		m.logger.Warn("session load failed, starting a new session",
			"case_id", caseID,
			"session_id", sessions[0].ID,
			"error", err,
		)
	}

	sess, err := m.Start(ctx, caseID, false, "")
	if err != nil {
		// Open already rejected a blank case id.
		return m.newEphemeral(caseID, false, "")
	}
	return sess
}

// AppendMessage persists msg in the background. Writes for one session
// reach the store in call order. Failures are logged and never reach the
// caller; the live conversation stays authoritative.
// Loading placeholders, synthetic messages and ephemeral sessions are skipped.
func (m *Manager) AppendMessage(sessionID string, msg models.Message) {
	if !msg.Persistable() || m.IsEphemeral(sessionID) {
		return
	}

	m.mu.Lock()
	prev := m.tails[sessionID]
	done := make(chan struct{})
	m.tails[sessionID] = done
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer m.release(sessionID, done)

		if prev != nil {
			<-prev
		}

		ctx, cancel := context.WithTimeout(context.Background(), m.persistTimeout)
		defer cancel()

		if err := m.store.AppendMessage(ctx, sessionID, &msg); err != nil {
			m.logger.Error("failed to persist message",
				"session_id", sessionID,
				"message_id", msg.ID,
				"role", msg.Role,
				"error", err,
			)
			return
		}
		m.logger.Debug("message persisted",
			"session_id", sessionID,
			"message_id", msg.ID,
		)
	}()
}

// release marks a queued write finished and forgets the session once its
// queue is empty.
func (m *Manager) release(sessionID string, done chan struct{}) {
	close(done)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tails[sessionID] == done {
		delete(m.tails, sessionID)
	}
}

// IsEphemeral reports whether a session exists only in memory.
func (m *Manager) IsEphemeral(sessionID string) bool {
	if strings.HasPrefix(sessionID, EphemeralPrefix) {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ephemeral[sessionID]
	return ok
}

// Wait blocks until all background writes have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) newEphemeral(caseID string, hypothesisMode bool, hypothesisText string) *models.Session {
	id := EphemeralPrefix + uuid.New().String()

	m.mu.Lock()
	m.ephemeral[id] = struct{}{}
	m.mu.Unlock()

	return &models.Session{
		ID:             id,
		CaseID:         caseID,
		HypothesisMode: hypothesisMode,
		HypothesisText: hypothesisText,
		CreatedAt:      m.now(),
		Ephemeral:      true,
	}
}

// withWelcome prepends the synthetic welcome message to an empty session.
func (m *Manager) withWelcome(ctx context.Context, sess *models.Session) {
	if len(sess.Messages) > 0 {
		return
	}

	content := welcomeText
	if m.demo {
		content = demoWelcomeText
	}

	var analysis *svc.CaseAnalysis
	if m.analyzer != nil {
		a, err := m.analyzer.AnalyzeCase(ctx, sess.CaseID)
		if err != nil {
			m.logger.Debug("case analysis failed, using generic suggestions",
				"case_id", sess.CaseID,
				"error", err,
			)
		} else {
			analysis = a
		}
	}

	sess.Messages = []models.Message{{
		ID:                 "welcome-" + sess.ID,
		Role:               models.RoleAssistant,
		Kind:               models.MessageKindWelcome,
		Content:            content,
		CreatedAt:          m.now(),
		SuggestedFollowups: WelcomeFollowups(analysis),
		Synthetic:          true,
	}}
}

func validateCreateRequest(req *svc.CreateSessionRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CaseID, validation.Required),
		validation.Field(&req.HypothesisText, validation.RuneLength(0, config.MaxHypothesisLength)),
	)
}

func cloneSession(s *models.Session) *models.Session {
	out := *s
	out.Messages = append([]models.Message(nil), s.Messages...)
	return &out
}
