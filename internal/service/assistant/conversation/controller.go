package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"flowbot/internal/config"
	"flowbot/internal/domain"
	models "flowbot/internal/domain/models/assistant"
	svc "flowbot/internal/domain/services/assistant"
	"flowbot/internal/service/assistant/actions"
	"flowbot/internal/service/assistant/visualization"
)

// DefaultPinSection is the report section used when none is given.
const DefaultPinSection = "findings"

// MessageSink persists messages without blocking the conversation.
type MessageSink interface {
	AppendMessage(sessionID string, msg models.Message)
}

// SuggestionClearer is the part of the autocomplete suggester the
// controller drives.
type SuggestionClearer interface {
	Clear()
}

// Notification is delivered to subscribers for every state transition and
// every emitted intent. Intent is nil for plain transitions.
type Notification struct {
	Event  string        `json:"event"`
	State  State         `json:"state"`
	Intent models.Intent `json:"intent,omitempty"`
}

// Listener receives notifications synchronously, in transition order.
// Listeners must not block or call back into the controller.
type Listener func(Notification)

// Options configures a Controller
type Options struct {
	Query      svc.QueryService
	Hypothesis svc.HypothesisService
	Pins       svc.PinService // optional
	Sink       MessageSink    // optional
	Actions    *actions.Dispatcher
	Renderer   *visualization.Renderer
	Suggester  SuggestionClearer // optional
	Logger     *slog.Logger
	Clock      func() time.Time
	NewID      func() string
	DemoMode   bool
	PinTimeout time.Duration
}

// Controller owns the live conversation of the active session. State
// changes go through Reduce; the controller runs the side effects.
type Controller struct {
	query      svc.QueryService
	hypothesis svc.HypothesisService
	pins       svc.PinService
	sink       MessageSink
	actions    *actions.Dispatcher
	renderer   *visualization.Renderer
	suggester  SuggestionClearer
	logger     *slog.Logger
	now        func() time.Time
	newID      func() string
	demo       bool
	pinTimeout time.Duration

	mu    sync.Mutex
	state State

	// notifyMu is taken before mu is released so deliveries keep the
	// order of transitions.
	notifyMu  sync.Mutex
	listeners []listenerEntry
	nextID    int

	pinWG sync.WaitGroup
}

type listenerEntry struct {
	id int
	fn Listener
}

// NewController creates a controller with no session loaded
func NewController(opts Options) *Controller {
	if opts.Actions == nil {
		opts.Actions = actions.NewDispatcher(nil)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Renderer == nil {
		opts.Renderer = visualization.NewRenderer(nil, opts.Logger)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return uuid.New().String() }
	}
	if opts.PinTimeout == 0 {
		opts.PinTimeout = 10 * time.Second
	}
	return &Controller{
		query:      opts.Query,
		hypothesis: opts.Hypothesis,
		pins:       opts.Pins,
		sink:       opts.Sink,
		actions:    opts.Actions,
		renderer:   opts.Renderer,
		suggester:  opts.Suggester,
		logger:     opts.Logger,
		now:        opts.Clock,
		newID:      opts.NewID,
		demo:       opts.DemoMode,
		pinTimeout: opts.PinTimeout,
		state:      InitialState(),
	}
}

// State returns the current state. Slices are shared and must be treated
// as read-only.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Renderer returns the visualization renderer used for this conversation
func (c *Controller) Renderer() *visualization.Renderer {
	return c.renderer
}

// Subscribe registers a listener and returns its unsubscribe func.
func (c *Controller) Subscribe(fn Listener) func() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.nextID++
	id := c.nextID
	c.listeners = append(c.listeners, listenerEntry{id: id, fn: fn})
	return func() {
		c.notifyMu.Lock()
		defer c.notifyMu.Unlock()
		for i, l := range c.listeners {
			if l.id == id {
				c.listeners = append(c.listeners[:i:i], c.listeners[i+1:]...)
				return
			}
		}
	}
}

// LoadSession replaces the conversation with sess. Completions still in
// flight for the previous session are dropped when they arrive.
func (c *Controller) LoadSession(sess *models.Session) {
	c.renderer.Reset()
	if c.suggester != nil {
		c.suggester.Clear()
	}

	c.mu.Lock()
	st := c.commit(SessionLoaded{Session: *sess})
	c.logger.Info("session loaded",
		"case_id", st.CaseID,
		"session_id", st.SessionID,
		"messages", len(st.Messages),
		"memory", len(st.Memory),
	)
}

// Submit sends a query. It blocks until the reply replaced the loading
// placeholder and returns the reply. Collaborator failures become an error
// reply, not an error return.
func (c *Controller) Submit(ctx context.Context, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrValidation)
	}

	c.mu.Lock()
	if c.state.SessionID == "" {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no session loaded", domain.ErrValidation)
	}
	if c.state.Mode != models.ModeQuery {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: queries are disabled in hypothesis mode", domain.ErrValidation)
	}
	if c.state.QueryPending {
		c.mu.Unlock()
		return nil, domain.ErrBusy
	}

	user := c.newMessage(models.RoleUser, models.MessageKindQuery, text)
	placeholder := c.newMessage(models.RoleAssistant, models.MessageKindQuery, "")
	placeholder.Loading = true

	gen := c.state.Generation
	caseID := c.state.CaseID
	sessionID := c.state.SessionID
	history := append([]models.Exchange{}, c.state.Memory...)
	c.commit(QuerySubmitted{User: user, Placeholder: placeholder})

	if c.suggester != nil {
		c.suggester.Clear()
	}
	c.persist(sessionID, user)

	c.logger.Info("query submitted",
		"case_id", caseID,
		"session_id", sessionID,
		"message_id", placeholder.ID,
		"history", len(history),
	)

	resp, err := c.query.Ask(ctx, &svc.AskRequest{
		Query:               text,
		CaseID:              caseID,
		ConversationHistory: history,
	})

	var reply models.Message
	var exchange *models.Exchange
	if err != nil {
		reply = c.errorReply(placeholder, err, text, caseID)
	} else {
		reply = c.answerReply(placeholder, text, resp)
		exchange = &models.Exchange{Query: text, Response: resp.Summary}
	}

	if !c.complete(gen, QueryCompleted{
		Generation:    gen,
		PlaceholderID: placeholder.ID,
		Reply:         reply,
		Exchange:      exchange,
	}) {
		c.logger.Debug("dropping reply for previous session", "session_id", sessionID, "message_id", reply.ID)
		return &reply, nil
	}
	if reply.Visualization != nil {
		if _, err := c.renderer.Mount(caseID, reply.ID, reply.Visualization); err != nil {
			c.logger.Warn("visualization rejected",
				"message_id", reply.ID,
				"kind", reply.Visualization.Kind,
				"error", err,
			)
		}
	}
	c.persist(sessionID, reply)
	return &reply, nil
}

// SetMode switches between query and hypothesis mode. Leaving hypothesis
// mode clears the draft and keeps the history.
func (c *Controller) SetMode(mode models.Mode) error {
	if mode != models.ModeQuery && mode != models.ModeHypothesis {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrValidation, mode)
	}
	if mode == models.ModeHypothesis && c.suggester != nil {
		c.suggester.Clear()
	}

	c.mu.Lock()
	if c.state.Mode == mode {
		c.mu.Unlock()
		return nil
	}
	c.commit(HypothesisModeChanged{Mode: mode})
	return nil
}

// ToggleHypothesisMode flips the mode and returns the new one.
func (c *Controller) ToggleHypothesisMode() models.Mode {
	next := models.ModeHypothesis
	if c.State().Mode == models.ModeHypothesis {
		next = models.ModeQuery
	}
	_ = c.SetMode(next)
	return next
}

// Cancel leaves hypothesis mode. An in-flight hypothesis test keeps running
// and its verdict still lands in the history.
func (c *Controller) Cancel() {
	_ = c.SetMode(models.ModeQuery)
}

// ToggleHistory collapses or expands the message history.
func (c *Controller) ToggleHistory() {
	c.mu.Lock()
	c.commit(HistoryToggled{})
}

// ClearNotice dismisses the current notice.
func (c *Controller) ClearNotice() {
	c.mu.Lock()
	if c.state.Notice == "" {
		c.mu.Unlock()
		return
	}
	c.commit(NoticeCleared{})
}

// SetHypothesisDraft updates the hypothesis editor text.
func (c *Controller) SetHypothesisDraft(text string) {
	c.mu.Lock()
	c.commit(HypothesisDraftChanged{Text: text})
}

// SubmitHypothesis tests the current draft against the case evidence.
// A draft outside 10..500 characters is rejected locally with a notice.
func (c *Controller) SubmitHypothesis(ctx context.Context) (*models.Message, error) {
	c.mu.Lock()
	if c.state.SessionID == "" {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no session loaded", domain.ErrValidation)
	}
	if c.state.Mode != models.ModeHypothesis {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: not in hypothesis mode", domain.ErrValidation)
	}

	draft := strings.TrimSpace(c.state.HypothesisDraft)
	if notice, err := validateHypothesis(draft); err != nil {
		c.commit(HypothesisRejected{Notice: notice})
		return nil, err
	}
	if c.state.HypothesisPending {
		c.mu.Unlock()
		return nil, domain.ErrBusy
	}

	user := c.newMessage(models.RoleUser, models.MessageKindHypothesis, FrameHypothesis(draft))
	placeholder := c.newMessage(models.RoleAssistant, models.MessageKindHypothesis, "")
	placeholder.Loading = true

	gen := c.state.Generation
	caseID := c.state.CaseID
	sessionID := c.state.SessionID
	c.commit(HypothesisSubmitted{User: user, Placeholder: placeholder})
	c.persist(sessionID, user)

	c.logger.Info("hypothesis submitted",
		"case_id", caseID,
		"session_id", sessionID,
		"length", utf8.RuneCountInString(draft),
	)

	result, err := c.hypothesis.TestHypothesis(ctx, &svc.HypothesisRequest{
		CaseID:     caseID,
		Hypothesis: draft,
	})

	var reply models.Message
	if err != nil {
		reply = c.errorReply(placeholder, err, draft, caseID)
	} else {
		reply = c.verdictReply(placeholder, result)
	}

	if !c.complete(gen, HypothesisCompleted{
		Generation:    gen,
		PlaceholderID: placeholder.ID,
		Reply:         reply,
	}) {
		c.logger.Debug("dropping verdict for previous session", "session_id", sessionID)
		return &reply, nil
	}
	c.persist(sessionID, reply)
	return &reply, nil
}

// PerformAction emits the navigation intent of an action offered under a
// message.
func (c *Controller) PerformAction(messageID string, kind models.ActionKind) (models.RequestNavigate, error) {
	target, ok := kind.Target()
	if !ok {
		return models.RequestNavigate{}, fmt.Errorf("%w: unknown action %q", domain.ErrValidation, kind)
	}

	st := c.State()
	msg, _, err := findMessage(st.Messages, messageID)
	if err != nil {
		return models.RequestNavigate{}, err
	}

	var action *models.Action
	for i := range msg.Actions {
		if msg.Actions[i].Kind == kind {
			action = &msg.Actions[i]
			break
		}
	}
	if action == nil {
		return models.RequestNavigate{}, fmt.Errorf("action %s on message %s: %w", kind, messageID, domain.ErrNotFound)
	}

	intent := models.RequestNavigate{
		Target:      target,
		CaseID:      st.CaseID,
		MessageID:   messageID,
		EvidenceIDs: append([]string(nil), action.EvidenceIDs...),
	}
	c.emit(string(kind), intent)
	return intent, nil
}

// HighlightEvidence asks the host to focus one evidence item.
func (c *Controller) HighlightEvidence(evidenceID string) (models.RequestHighlight, error) {
	if strings.TrimSpace(evidenceID) == "" {
		return models.RequestHighlight{}, fmt.Errorf("%w: evidence id is required", domain.ErrValidation)
	}
	intent := models.RequestHighlight{EvidenceID: evidenceID}
	c.emit("highlight", intent)
	return intent, nil
}

// RequestFullView emits the request to open a message's visualization in
// its dedicated view.
func (c *Controller) RequestFullView(messageID string) (models.RequestNavigate, error) {
	if _, err := c.MountVisualization(messageID); err != nil {
		return models.RequestNavigate{}, err
	}
	intent, err := c.renderer.FullView(messageID)
	if err != nil {
		return models.RequestNavigate{}, err
	}
	c.emit("full_view", intent)
	return intent, nil
}

// MountVisualization returns the mounted view of a message, mounting it
// on first use.
func (c *Controller) MountVisualization(messageID string) (*visualization.View, error) {
	st := c.State()
	msg, _, err := findMessage(st.Messages, messageID)
	if err != nil {
		return nil, err
	}
	return c.renderer.Mount(st.CaseID, messageID, msg.Visualization)
}

// Pin adds an assistant message to the case report. The request is
// validated synchronously and sent in the background.
func (c *Controller) Pin(messageID, section string) (*svc.PinRequest, error) {
	if c.pins == nil {
		return nil, fmt.Errorf("%w: pinning is not available", domain.ErrUnavailable)
	}

	st := c.State()
	msg, idx, err := findMessage(st.Messages, messageID)
	if err != nil {
		return nil, err
	}
	if msg.Role != models.RoleAssistant || !msg.Persistable() || msg.Kind == models.MessageKindError {
		return nil, fmt.Errorf("%w: only answers can be pinned", domain.ErrValidation)
	}

	req := &svc.PinRequest{
		CaseID:      st.CaseID,
		Title:       pinTitle(st.Messages[:idx]),
		Content:     msg.Content,
		QueryID:     messageID,
		EvidenceIDs: append([]string{}, msg.EvidenceIDs...),
		Section:     strings.TrimSpace(section),
		Metadata: map[string]interface{}{
			"session_id": st.SessionID,
			"kind":       string(msg.Kind),
		},
	}
	if req.Section == "" {
		req.Section = DefaultPinSection
	}
	if msg.Confidence != nil {
		req.Metadata["confidence"] = *msg.Confidence
	}
	if err := validatePin(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	c.pinWG.Add(1)
	go func() {
		defer c.pinWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.pinTimeout)
		defer cancel()

		if err := c.pins.PinResponse(ctx, req); err != nil {
			c.logger.Error("failed to pin message",
				"case_id", req.CaseID,
				"message_id", messageID,
				"error", err,
			)
			return
		}
		c.logger.Info("message pinned",
			"case_id", req.CaseID,
			"message_id", messageID,
			"section", req.Section,
		)
	}()
	return req, nil
}

// Wait blocks until background pin requests have finished.
func (c *Controller) Wait() {
	c.pinWG.Wait()
}

// commit applies ev and delivers the notification. The caller must hold
// c.mu; commit releases it.
func (c *Controller) commit(ev Event) State {
	c.state = Reduce(c.state, ev)
	st := c.state
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	c.deliver(Notification{Event: ev.EventName(), State: st})
	return st
}

// complete commits a completion unless the session changed since gen.
func (c *Controller) complete(gen uint64, ev Event) bool {
	c.mu.Lock()
	if c.state.Generation != gen {
		c.mu.Unlock()
		return false
	}
	c.commit(ev)
	return true
}

func (c *Controller) emit(name string, intent models.Intent) {
	c.mu.Lock()
	st := c.state
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	c.logger.Debug("intent emitted",
		"intent", intent.IntentName(),
		"trigger", name,
		"session_id", st.SessionID,
	)
	c.deliver(Notification{Event: intent.IntentName(), State: st, Intent: intent})
}

// deliver runs with notifyMu held
func (c *Controller) deliver(n Notification) {
	for _, l := range c.listeners {
		l.fn(n)
	}
}

func (c *Controller) persist(sessionID string, msg models.Message) {
	if c.sink == nil {
		return
	}
	c.sink.AppendMessage(sessionID, msg)
}

func (c *Controller) newMessage(role models.Role, kind models.MessageKind, content string) models.Message {
	return models.Message{
		ID:        c.newID(),
		Role:      role,
		Kind:      kind,
		Content:   content,
		CreatedAt: c.now(),
	}
}

func (c *Controller) answerReply(placeholder models.Message, query string, resp *svc.AskResponse) models.Message {
	reply := placeholder
	reply.Loading = false
	reply.CreatedAt = c.now()
	reply.Content = resp.Summary
	reply.EvidenceIDs = models.EvidenceIDs(resp.Evidence)
	reply.Evidence = topEvidence(resp.Evidence)
	reply.Actions = c.actions.Derive(query, resp.Evidence)
	reply.SuggestedFollowups = append([]string(nil), resp.SuggestedFollowups...)
	reply.Visualization = resp.EmbeddedComponent
	reply.ResultsCount = resp.ResultsCount
	confidence := resp.Confidence
	reply.Confidence = &confidence
	if resp.ProcessingTime > 0 {
		pt := resp.ProcessingTime
		reply.ProcessingTime = &pt
	}
	return reply
}

func (c *Controller) verdictReply(placeholder models.Message, result *models.HypothesisResult) models.Message {
	reply := placeholder
	reply.Loading = false
	reply.CreatedAt = c.now()
	reply.Content = FormatVerdict(result)
	reply.Hypothesis = result
	reply.EvidenceIDs = models.EvidenceIDs(result.SupportingEvidence)
	reply.Evidence = topEvidence(result.SupportingEvidence)
	confidence := result.Confidence
	reply.Confidence = &confidence
	return reply
}

func (c *Controller) errorReply(placeholder models.Message, err error, query, caseID string) models.Message {
	class := Classify(err)
	level := slog.LevelWarn
	if class == ClassServer || errors.Is(err, domain.ErrUnavailable) {
		level = slog.LevelError
	}
	c.logger.Log(context.Background(), level, "assistant request failed",
		"case_id", caseID,
		"message_id", placeholder.ID,
		"class", class,
		"error", err,
	)

	reply := placeholder
	reply.Loading = false
	reply.CreatedAt = c.now()
	reply.Kind = models.MessageKindError
	reply.Content = ErrorMessage(class, err, query, caseID, c.demo)
	return reply
}

func topEvidence(items []models.Evidence) []models.Evidence {
	n := len(items)
	if n > config.EvidenceSliceLimit {
		n = config.EvidenceSliceLimit
	}
	return append([]models.Evidence(nil), items[:n]...)
}

func findMessage(msgs []models.Message, id string) (models.Message, int, error) {
	for i, m := range msgs {
		if m.ID == id {
			return m, i, nil
		}
	}
	return models.Message{}, -1, fmt.Errorf("message %s: %w", id, domain.ErrNotFound)
}

// pinTitle uses the closest preceding user message.
func pinTitle(before []models.Message) string {
	for i := len(before) - 1; i >= 0; i-- {
		if before[i].Role == models.RoleUser {
			return titleFrom(before[i].Content, config.MaxPinTitleLength)
		}
	}
	return titleFrom("", config.MaxPinTitleLength)
}

func validateHypothesis(text string) (string, error) {
	err := validation.Validate(text,
		validation.Required,
		validation.RuneLength(config.MinHypothesisLength, config.MaxHypothesisLength),
	)
	if err == nil {
		return "", nil
	}
	notice := fmt.Sprintf("Please describe your hypothesis in at least %d characters.", config.MinHypothesisLength)
	if utf8.RuneCountInString(text) > config.MaxHypothesisLength {
		notice = fmt.Sprintf("Hypotheses are limited to %d characters.", config.MaxHypothesisLength)
	}
	return notice, fmt.Errorf("%w: hypothesis: %v", domain.ErrValidation, err)
}

func validatePin(req *svc.PinRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.CaseID, validation.Required),
		validation.Field(&req.Title, validation.Required, validation.RuneLength(1, config.MaxPinTitleLength)),
		validation.Field(&req.Content, validation.Required),
		validation.Field(&req.Section, validation.Required, validation.RuneLength(1, 100)),
	)
}
