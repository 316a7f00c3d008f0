// Package autocomplete suggests entity completions while a query is typed.
package autocomplete

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"flowbot/internal/config"
	models "flowbot/internal/domain/models/assistant"
	svc "flowbot/internal/domain/services/assistant"
)

// Suggestions is the visible completion list and the request that produced it
type Suggestions struct {
	Seq    uint64           `json:"seq"`
	Text   string           `json:"text"`
	Intent svc.EntityIntent `json:"intent,omitempty"`
	Items  []string         `json:"items"`
}

// Options configures a Suggester
type Options struct {
	Service  svc.AutocompleteService
	Patterns []Pattern
	DemoMode bool
	Debounce time.Duration
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Suggester classifies in-progress text and fetches candidate completions.
// Every fetch carries a sequence number; a result is applied only when it
// is newer than the last applied one, so late responses never overwrite a
// more recent suggestion set.
type Suggester struct {
	service  svc.AutocompleteService
	patterns []Pattern
	demo     bool
	debounce time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	dispatched uint64
	applied    uint64
	current    Suggestions
	timer      *time.Timer

	listenersMu sync.Mutex
	listeners   map[int]func(Suggestions)
	nextID      int
}

// NewSuggester creates a suggester
func NewSuggester(opts Options) *Suggester {
	if opts.Patterns == nil {
		opts.Patterns = DefaultPatterns
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Suggester{
		service:   opts.Service,
		patterns:  opts.Patterns,
		demo:      opts.DemoMode,
		debounce:  opts.Debounce,
		timeout:   opts.Timeout,
		logger:    opts.Logger,
		current:   Suggestions{Items: []string{}},
		listeners: make(map[int]func(Suggestions)),
	}
}

// Eligible reports whether text typed in mode may trigger suggestions.
func (s *Suggester) Eligible(text string, mode models.Mode) bool {
	if s.demo || s.service == nil || mode != models.ModeQuery {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(text)) >= config.AutocompleteMinLength
}

// Type schedules a debounced fetch for text. Ineligible text clears the
// list immediately.
func (s *Suggester) Type(caseID, text string, mode models.Mode) {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.Eligible(text, mode) {
		s.mu.Unlock()
		s.Clear()
		return
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.Suggest(ctx, caseID, text, mode)
	})
	s.mu.Unlock()
}

// Suggest fetches and applies completions for text synchronously and
// returns the suggestion set visible afterwards.
func (s *Suggester) Suggest(ctx context.Context, caseID, text string, mode models.Mode) Suggestions {
	seq := s.dispatch()

	if !s.Eligible(text, mode) {
		s.apply(Suggestions{Seq: seq, Text: text})
		return s.Current()
	}

	intent, ok := Classify(s.patterns, text)
	if !ok {
		s.apply(Suggestions{Seq: seq, Text: text})
		return s.Current()
	}

	candidates, err := s.service.Suggest(ctx, caseID, intent)
	if err != nil {
		s.logger.Debug("autocomplete fetch failed",
			"case_id", caseID,
			"intent", intent,
			"seq", seq,
			"error", err,
		)
		candidates = nil
	}

	s.apply(Suggestions{
		Seq:    seq,
		Text:   text,
		Intent: intent,
		Items:  Complete(text, candidates, config.MaxSuggestions),
	})
	return s.Current()
}

// Current returns the applied suggestion set
func (s *Suggester) Current() Suggestions {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.current
	out.Items = append([]string{}, s.current.Items...)
	return out
}

// Clear cancels any pending fetch and empties the list. Responses to
// earlier requests are discarded when they arrive.
func (s *Suggester) Clear() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.apply(Suggestions{Seq: s.dispatch()})
}

// Subscribe registers a listener for applied suggestion changes.
func (s *Suggester) Subscribe(fn func(Suggestions)) func() {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

// Stop cancels any pending debounced fetch.
func (s *Suggester) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Suggester) dispatch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatched++
	return s.dispatched
}

// apply installs sug unless a newer request has already been applied.
func (s *Suggester) apply(sug Suggestions) bool {
	if sug.Items == nil {
		sug.Items = []string{}
	}

	s.mu.Lock()
	if applied := s.applied; sug.Seq <= applied {
		s.mu.Unlock()
		s.logger.Debug("discarding stale suggestions", "seq", sug.Seq, "applied", applied)
		return false
	}
	s.applied = sug.Seq
	changed := !sameItems(s.current.Items, sug.Items)
	s.current = sug
	if !changed {
		s.mu.Unlock()
		return true
	}

	// Listeners see applies in sequence order.
	s.listenersMu.Lock()
	s.mu.Unlock()
	defer s.listenersMu.Unlock()
	s.deliver(sug)
	return true
}

// deliver runs with listenersMu held
func (s *Suggester) deliver(sug Suggestions) {
	for _, fn := range s.listeners {
		fn(sug)
	}
}

// Complete appends each candidate to text, dropping blanks and duplicates.
func Complete(text string, candidates []string, limit int) []string {
	base := strings.TrimRight(text, " \t")
	seen := make(map[string]struct{}, len(candidates))
	out := []string{}
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, base+" "+c)
		if len(out) == limit {
			break
		}
	}
	return out
}

func sameItems(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
