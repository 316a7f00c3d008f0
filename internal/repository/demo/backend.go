// Package demo is an in-memory stand-in for the case backend. It serves one
// sample case whose answers exercise every visualization kind, so the
// assistant can be shown without a backend or credentials.
package demo

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowbot/internal/domain"
	models "flowbot/internal/domain/models/assistant"
	svc "flowbot/internal/domain/services/assistant"
)

// Options configures a Backend
type Options struct {
	// Latency delays every answer, to show loading placeholders.
	Latency time.Duration
	Logger  *slog.Logger
	Clock   func() time.Time
}

// Backend implements every collaborator of the assistant over sample data.
type Backend struct {
	latency time.Duration
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*models.Session
	pins     []svc.PinRequest
}

var (
	_ svc.QueryService        = (*Backend)(nil)
	_ svc.HypothesisService   = (*Backend)(nil)
	_ svc.SessionStore        = (*Backend)(nil)
	_ svc.AutocompleteService = (*Backend)(nil)
	_ svc.PinService          = (*Backend)(nil)
	_ svc.CaseAnalyzer        = (*Backend)(nil)
)

// NewBackend creates an empty demo backend
func NewBackend(opts Options) *Backend {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Backend{
		latency:  opts.Latency,
		logger:   opts.Logger,
		now:      opts.Clock,
		sessions: make(map[string]*models.Session),
	}
}

func (b *Backend) checkCase(caseID string) error {
	if caseID != CaseID {
		return &domain.APIError{Status: http.StatusNotFound, Message: "Case not found"}
	}
	return nil
}

func (b *Backend) wait(ctx context.Context) error {
	if b.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(b.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// topic picks the canned answer shape for a question
type topic struct {
	name    string
	pattern *regexp.Regexp
	answer  func() answer
}

type answer struct {
	summary       string
	evidence      []models.Evidence
	visualization *models.Visualization
	followups     []string
}

var topics = []topic{
	{
		name:    "network",
		pattern: regexp.MustCompile(`(?i)network|graph|relationship|connect|link`),
		answer: func() answer {
			g := sampleGraph.Clone()
			return answer{
				summary: "Alex Morgan and Sam Okafor are the centre of the network. " +
					"Sam paid Jordan Reyes the morning after the marina meeting, and an unknown UK number called Sam shortly after.",
				evidence:      pick("ev-101", "ev-103", "ev-106", "ev-108"),
				visualization: &models.Visualization{Kind: models.VisualizationNetwork, Graph: &g},
				followups:     []string{"Who is behind +447700900123?", "Show the payment to Jordan Reyes"},
			}
		},
	},
	{
		name:    "map",
		pattern: regexp.MustCompile(`(?i)\b(map|where|location|gps|visited|near)\b`),
		answer: func() answer {
			ev := filterType("location")
			return answer{
				summary:       "Both devices were at Dubai Marina Walk within four minutes of each other on 14 March. Sam's phone was later at Al Maktoum Airport.",
				evidence:      ev,
				visualization: &models.Visualization{Kind: models.VisualizationMap, Points: geoPoints(ev)},
				followups:     []string{"What happened after the marina meeting?", "Did Sam leave the country?"},
			}
		},
	},
	{
		name:    "chat",
		pattern: regexp.MustCompile(`(?i)\b(chat|conversation|messages?|said|texts?)\b`),
		answer: func() answer {
			ev := filterType("message")
			return answer{
				summary:       "Alex and Sam arranged a meeting at the marina and a 0.8 BTC transfer over WhatsApp. Sam confirmed the package the next morning on Telegram.",
				evidence:      ev,
				visualization: &models.Visualization{Kind: models.VisualizationChatBubbles, Chat: chatLines(ev)},
				followups:     []string{"Trace the 0.8 BTC transfer", "Who else did Sam message?"},
			}
		},
	},
	{
		name:    "timeline",
		pattern: regexp.MustCompile(`(?i)timeline|when|chronolog|sequence|date|time`),
		answer: func() answer {
			ev := append([]models.Evidence(nil), sampleEvidence...)
			return answer{
				summary:       "Activity runs from the WhatsApp arrangement at 21:02 on 14 March to the airport photo at 13:45 the next day.",
				evidence:      ev,
				visualization: &models.Visualization{Kind: models.VisualizationTimeline, Timeline: timelineEvents(ev)},
				followups:     []string{"What happened between 23:00 and 08:00?", "Show the locations on a map"},
			}
		},
	},
}

// Ask implements svc.QueryService
func (b *Backend) Ask(ctx context.Context, req *svc.AskRequest) (*svc.AskResponse, error) {
	if err := b.checkCase(req.CaseID); err != nil {
		return nil, err
	}
	start := b.now()
	if err := b.wait(ctx); err != nil {
		return nil, err
	}

	a := answerFor(req.Query, req.ConversationHistory)
	resp := &svc.AskResponse{
		Query:              req.Query,
		Summary:            a.summary,
		Confidence:         averageConfidence(a.evidence),
		Evidence:           a.evidence,
		ResultsCount:       len(a.evidence),
		ProcessingTime:     b.now().Sub(start).Seconds(),
		SuggestedFollowups: a.followups,
		EmbeddedComponent:  a.visualization,
	}
	b.logger.Debug("demo answer", "query", req.Query, "results", resp.ResultsCount, "history", len(req.ConversationHistory))
	return resp, nil
}

func answerFor(query string, history []models.Exchange) answer {
	for _, t := range topics {
		if t.pattern.MatchString(query) {
			return t.answer()
		}
	}

	ev := search(query)
	if len(ev) == 0 {
		summary := "I could not find evidence matching that question in the sample case."
		if len(history) > 0 {
			summary += " Try naming a person, a place or a date from the earlier answers."
		}
		return answer{
			summary:   summary,
			followups: []string{"Show the communication network", "Show a timeline of events"},
		}
	}
	return answer{
		summary:   fmt.Sprintf("Found %d matching items. The most relevant is from %s: %q", len(ev), ev[0].Source, ev[0].Content),
		evidence:  ev,
		followups: []string{"Show a timeline of these events"},
	}
}

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}+]{3,}`)

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "who": {}, "what": {}, "did": {}, "was": {}, "were": {},
	"with": {}, "from": {}, "show": {}, "all": {}, "any": {}, "for": {}, "about": {},
}

// search ranks evidence by how many query words it mentions.
func search(query string) []models.Evidence {
	var words []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(query), -1) {
		if _, stop := stopWords[w]; !stop {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}

	type scored struct {
		ev    models.Evidence
		score int
	}
	var hits []scored
	for _, ev := range sampleEvidence {
		text := strings.ToLower(ev.Content + " " + ev.Source + " " + ev.Device)
		for _, e := range ev.Entities {
			text += " " + strings.ToLower(e.Value)
		}
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{ev, score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]models.Evidence, len(hits))
	for i, h := range hits {
		out[i] = h.ev
	}
	return out
}

// negation marks a claim that denies something; related evidence then
// contradicts it instead of supporting it.
var negation = regexp.MustCompile(`(?i)\b(never|not|no|didn't|did not|without)\b`)

// TestHypothesis implements svc.HypothesisService
func (b *Backend) TestHypothesis(ctx context.Context, req *svc.HypothesisRequest) (*models.HypothesisResult, error) {
	if err := b.checkCase(req.CaseID); err != nil {
		return nil, err
	}
	if err := b.wait(ctx); err != nil {
		return nil, err
	}

	related := search(req.Hypothesis)
	result := &models.HypothesisResult{
		Hypothesis:    req.Hypothesis,
		EvidenceCount: models.EvidenceCount{Total: len(sampleEvidence)},
	}

	switch {
	case len(related) == 0:
		result.Conclusion = models.ConclusionInconclusive
		result.Confidence = 0.3
		result.Analysis = "None of the sample evidence mentions the people, places or items in this hypothesis."
	case negation.MatchString(req.Hypothesis):
		result.Conclusion = models.ConclusionUnlikely
		result.ContradictoryEvidence = related
		result.Confidence = averageConfidence(related)
		result.Analysis = fmt.Sprintf("%d items directly contradict the claim; the earliest is %s from %s.",
			len(related), related[0].ID, related[0].Source)
	default:
		result.Conclusion = models.ConclusionLikely
		result.SupportingEvidence = related
		result.Confidence = averageConfidence(related)
		result.Analysis = fmt.Sprintf("%d items are consistent with the claim and none contradict it.", len(related))
	}
	result.EvidenceCount.Supporting = len(result.SupportingEvidence)
	result.EvidenceCount.Contradictory = len(result.ContradictoryEvidence)
	return result, nil
}

// Suggest implements svc.AutocompleteService
func (b *Backend) Suggest(ctx context.Context, caseID string, intent svc.EntityIntent) ([]string, error) {
	if err := b.checkCase(caseID); err != nil {
		return nil, err
	}

	var types []string
	switch intent {
	case svc.IntentContact:
		types = []string{"Contact", "Phone"}
	case svc.IntentTransaction:
		types = []string{"Amount"}
	case svc.IntentCrypto:
		types = []string{"CryptoAddress"}
	case svc.IntentDevice:
		return append([]string(nil), sampleDevices...), nil
	case svc.IntentLocation:
		var places []string
		for _, ev := range filterType("location") {
			places = append(places, ev.Content)
		}
		return uniqueByCount(places), nil
	}

	var values []string
	for _, ev := range sampleEvidence {
		for _, e := range ev.Entities {
			for _, t := range types {
				if e.Type == t {
					values = append(values, e.Value)
				}
			}
		}
	}
	return uniqueByCount(values), nil
}

// AnalyzeCase implements svc.CaseAnalyzer
func (b *Backend) AnalyzeCase(ctx context.Context, caseID string) (*svc.CaseAnalysis, error) {
	if err := b.checkCase(caseID); err != nil {
		return nil, err
	}
	a := &svc.CaseAnalysis{
		EntitySummary: make(map[string]int),
		EvidenceCount: len(sampleEvidence),
	}
	for _, ev := range sampleEvidence {
		if ev.Location != nil {
			a.HasGPSData = true
		}
		if ev.Type == "transaction" {
			a.HasFinancialData = true
		}
		for _, e := range ev.Entities {
			a.EntitySummary[e.Type]++
			switch {
			case e.Type == "CryptoAddress":
				a.HasCryptoAddresses = true
			case e.Type == "Phone" && !strings.HasPrefix(e.Value, "+971"):
				a.HasForeignNumbers = true
			}
		}
	}
	a.EntitySummary["devices"] = len(sampleDevices)
	return a, nil
}

// PinResponse implements svc.PinService
func (b *Backend) PinResponse(ctx context.Context, req *svc.PinRequest) error {
	if err := b.checkCase(req.CaseID); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pins = append(b.pins, *req)
	return nil
}

// Pins returns the report items pinned so far
func (b *Backend) Pins() []svc.PinRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]svc.PinRequest(nil), b.pins...)
}

// ListSessions implements svc.SessionStore
func (b *Backend) ListSessions(ctx context.Context, caseID string) ([]models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := []models.Session{}
	for _, s := range b.sessions {
		if s.CaseID != caseID {
			continue
		}
		summary := *s
		summary.Messages = nil
		out = append(out, summary)
	}
	models.SortByRecency(out)
	return out, nil
}

// CreateSession implements svc.SessionStore
func (b *Backend) CreateSession(ctx context.Context, req *svc.CreateSessionRequest) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &models.Session{
		ID:             uuid.NewString(),
		CaseID:         req.CaseID,
		Title:          req.Title,
		HypothesisMode: req.HypothesisMode,
		HypothesisText: req.HypothesisText,
		CreatedAt:      b.now(),
	}
	b.sessions[s.ID] = s
	out := *s
	return &out, nil
}

// GetSession implements svc.SessionStore
func (b *Backend) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	out := *s
	out.Messages = append([]models.Message(nil), s.Messages...)
	return &out, nil
}

// AppendMessage implements svc.SessionStore. Only the fields a real store
// keeps survive: full evidence objects are dropped.
func (b *Backend) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	for _, m := range s.Messages {
		if msg.ID != "" && m.ID == msg.ID {
			return nil
		}
	}

	stored := models.Message{
		ID:             msg.ID,
		Role:           msg.Role,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
		EvidenceIDs:    append([]string(nil), msg.EvidenceIDs...),
		Confidence:     msg.Confidence,
		ProcessingTime: msg.ProcessingTime,
	}
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = b.now()
	}
	stored.ApplyExtras(msg.Extras())
	s.Messages = append(s.Messages, stored)

	s.MessageCount++
	at := stored.CreatedAt
	if s.LastMessageAt == nil || at.After(*s.LastMessageAt) {
		s.LastMessageAt = &at
	}
	if s.MessageCount == 2 && s.Title == "" {
		for _, m := range s.Messages {
			if m.Role == models.RoleUser {
				s.Title = models.DeriveSessionTitle(m.Content)
				break
			}
		}
	}
	return nil
}

func pick(ids ...string) []models.Evidence {
	var out []models.Evidence
	for _, id := range ids {
		for _, ev := range sampleEvidence {
			if ev.ID == id {
				out = append(out, ev)
			}
		}
	}
	return out
}

func filterType(t string) []models.Evidence {
	var out []models.Evidence
	for _, ev := range sampleEvidence {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func averageConfidence(ev []models.Evidence) float64 {
	if len(ev) == 0 {
		return 0.2
	}
	var sum float64
	for _, e := range ev {
		sum += e.Confidence
	}
	// Two decimals, as the backend reports it.
	v, _ := strconv.ParseFloat(strconv.FormatFloat(sum/float64(len(ev)), 'f', 2, 64), 64)
	return v
}

// uniqueByCount orders distinct values by how often they occur.
func uniqueByCount(values []string) []string {
	counts := make(map[string]int)
	var order []string
	for _, v := range values {
		if counts[v] == 0 {
			order = append(order, v)
		}
		counts[v]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	return order
}

func timelineEvents(ev []models.Evidence) []models.TimelineEvent {
	out := make([]models.TimelineEvent, len(ev))
	for i, e := range ev {
		out[i] = models.TimelineEvent{
			ID:        e.ID,
			Timestamp: e.Timestamp,
			Source:    e.Source,
			Content:   e.Content,
			Type:      e.Type,
			Device:    e.Device,
		}
	}
	return out
}

func geoPoints(ev []models.Evidence) []models.GeoPoint {
	var out []models.GeoPoint
	for _, e := range ev {
		if e.Location == nil {
			continue
		}
		out = append(out, models.GeoPoint{
			ID:        e.ID,
			Lat:       e.Location.Lat,
			Lon:       e.Location.Lon,
			Timestamp: e.Timestamp,
			Label:     e.Content,
			Device:    e.Device,
		})
	}
	return out
}

func chatLines(ev []models.Evidence) []models.ChatLine {
	out := make([]models.ChatLine, len(ev))
	for i, e := range ev {
		direction := "received"
		if strings.Contains(e.Device, "Alex") {
			direction = "sent"
		}
		out[i] = models.ChatLine{
			ID:        e.ID,
			Sender:    chatParticipants[e.Device],
			Content:   e.Content,
			Timestamp: e.Timestamp,
			Direction: direction,
			App:       e.Source,
		}
	}
	return out
}
