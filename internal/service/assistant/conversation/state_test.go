package conversation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"flowbot/internal/domain"
	models "flowbot/internal/domain/models/assistant"
)

func TestPushExchangeEvictsOldest(t *testing.T) {
	var window []models.Exchange
	for i := 1; i <= 11; i++ {
		window = PushExchange(window, models.Exchange{Query: fmt.Sprintf("q%d", i)}, 10)
	}
	if len(window) != 10 {
		t.Fatalf("len = %d, want 10", len(window))
	}
	if window[0].Query != "q2" || window[9].Query != "q11" {
		t.Errorf("window = %v .. %v", window[0], window[9])
	}
}

func TestPushExchangeDoesNotAlias(t *testing.T) {
	base := make([]models.Exchange, 2, 10)
	base[0].Query, base[1].Query = "a", "b"

	first := PushExchange(base, models.Exchange{Query: "c"}, 10)
	second := PushExchange(base, models.Exchange{Query: "d"}, 10)
	if first[2].Query != "c" || second[2].Query != "d" {
		t.Errorf("windows share storage: %v %v", first, second)
	}
}

func TestRebuildWindow(t *testing.T) {
	msgs := []models.Message{
		{ID: "w", Role: models.RoleAssistant, Kind: models.MessageKindWelcome, Content: "hello"},
		{ID: "1", Role: models.RoleUser, Content: "who called Sam?"},
		{ID: "2", Role: models.RoleAssistant, Content: "Alex called Sam twice."},
		{ID: "3", Role: models.RoleUser, Kind: models.MessageKindHypothesis, Content: FrameHypothesis("Alex met Sam")},
		{ID: "4", Role: models.RoleAssistant, Content: "**Verdict: Likely**"},
		{ID: "5", Role: models.RoleUser, Content: "any wallets?"},
		{ID: "6", Role: models.RoleAssistant, Kind: models.MessageKindError, Content: "Sorry"},
		{ID: "7", Role: models.RoleUser, Content: "where was Alex?"},
		{ID: "8", Role: models.RoleAssistant, Content: "Dubai."},
	}

	window := RebuildWindow(msgs, 10)
	want := []models.Exchange{
		{Query: "who called Sam?", Response: "Alex called Sam twice."},
		{Query: "where was Alex?", Response: "Dubai."},
	}
	if len(window) != len(want) {
		t.Fatalf("window = %+v", window)
	}
	for i := range want {
		if window[i] != want[i] {
			t.Errorf("window[%d] = %+v, want %+v", i, window[i], want[i])
		}
	}
}

func TestReduceModeTransitions(t *testing.T) {
	s := Reduce(InitialState(), SessionLoaded{Session: models.Session{ID: "s1", CaseID: "c1",
		Messages: []models.Message{{ID: "1", Role: models.RoleUser, Content: "q"}}}})

	s = Reduce(s, HypothesisModeChanged{Mode: models.ModeHypothesis})
	if s.Mode != models.ModeHypothesis || !s.HistoryCollapsed {
		t.Fatalf("entering hypothesis mode: %+v", s)
	}

	s = Reduce(s, HypothesisDraftChanged{Text: "Alex met Sam in Dubai"})
	s = Reduce(s, HypothesisModeChanged{Mode: models.ModeQuery})
	if s.Mode != models.ModeQuery || s.HistoryCollapsed || s.HypothesisDraft != "" {
		t.Errorf("leaving hypothesis mode: %+v", s)
	}
	if len(s.Messages) != 1 || s.Messages[0].ID != "1" {
		t.Errorf("history must survive mode changes: %+v", s.Messages)
	}
}

func TestReduceDropsStaleCompletion(t *testing.T) {
	s := Reduce(InitialState(), SessionLoaded{Session: models.Session{ID: "s1"}})
	gen := s.Generation
	s = Reduce(s, QuerySubmitted{
		User:        models.Message{ID: "u"},
		Placeholder: models.Message{ID: "p", Loading: true},
	})
	s = Reduce(s, SessionLoaded{Session: models.Session{ID: "s2"}})

	next := Reduce(s, QueryCompleted{Generation: gen, PlaceholderID: "p", Reply: models.Message{ID: "p"},
		Exchange: &models.Exchange{Query: "q"}})
	if len(next.Messages) != 0 || len(next.Memory) != 0 {
		t.Errorf("stale completion applied: %+v", next)
	}
}

func TestReduceReplacesPlaceholder(t *testing.T) {
	s := Reduce(InitialState(), SessionLoaded{Session: models.Session{ID: "s1"}})
	s = Reduce(s, QuerySubmitted{
		User:        models.Message{ID: "u", Role: models.RoleUser},
		Placeholder: models.Message{ID: "p", Role: models.RoleAssistant, Loading: true},
	})
	before := s.Messages

	s = Reduce(s, QueryCompleted{Generation: s.Generation, PlaceholderID: "p",
		Reply: models.Message{ID: "p", Role: models.RoleAssistant, Content: "done"}})

	if len(s.Messages) != 2 || s.Messages[1].Loading || s.Messages[1].Content != "done" {
		t.Errorf("messages = %+v", s.Messages)
	}
	if !before[1].Loading {
		t.Error("reducer mutated the previous state's messages")
	}
	if s.QueryPending {
		t.Error("query should no longer be pending")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"api 404", &domain.APIError{Status: 404, Message: "Case not found"}, ClassCaseNotFound},
		{"text match", errors.New("Case not found"), ClassCaseNotFound},
		{"wrapped sentinel", fmt.Errorf("ask: %w", domain.ErrNotFound), ClassCaseNotFound},
		{"api 500", &domain.APIError{Status: 500, Message: "boom"}, ClassServer},
		{"api 503", fmt.Errorf("ask: %w", &domain.APIError{Status: 503}), ClassServer},
		{"api 400", &domain.APIError{Status: 400, Message: "bad"}, ClassGeneric},
		{"transport", fmt.Errorf("%w: dial tcp", domain.ErrUnavailable), ClassGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestErrorMessageVariants(t *testing.T) {
	err := errors.New("upstream exploded")

	server := ErrorMessage(ClassServer, err, "who called?", "case-7", false)
	for _, want := range []string{"server-side", "upstream exploded", "who called?", "case-7"} {
		if !strings.Contains(server, want) {
			t.Errorf("server message %q missing %q", server, want)
		}
	}

	if msg := ErrorMessage(ClassCaseNotFound, err, "q", "case-7", true); !strings.Contains(msg, "sample case") {
		t.Errorf("demo message should mention the sample case: %q", msg)
	}
	if msg := ErrorMessage(ClassGeneric, err, "q", "c", false); !strings.Contains(msg, "upstream exploded") {
		t.Errorf("generic message should carry the raw error: %q", msg)
	}
}

func TestFormatVerdict(t *testing.T) {
	got := FormatVerdict(&models.HypothesisResult{
		Conclusion:    models.ConclusionLikely,
		Confidence:    0.826,
		Analysis:      "Both phones pinged the same tower.",
		EvidenceCount: models.EvidenceCount{Total: 5, Supporting: 4, Contradictory: 1},
	})
	for _, want := range []string{"Verdict: Likely", "83%", "same tower", "5 total, 4 supporting, 1 contradictory"} {
		if !strings.Contains(got, want) {
			t.Errorf("verdict %q missing %q", got, want)
		}
	}
}
