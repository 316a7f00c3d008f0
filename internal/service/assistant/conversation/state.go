// Package conversation drives one chat session: the message log, the
// short-term memory window, query and hypothesis modes, and the intents
// emitted for the host.
package conversation

import (
	"flowbot/internal/config"
	models "flowbot/internal/domain/models/assistant"
)

// State is the complete conversation state. It is a value: the reducer
// returns a new State and never mutates slices it was given.
type State struct {
	CaseID    string `json:"case_id"`
	SessionID string `json:"session_id"`
	Ephemeral bool   `json:"ephemeral"`

	Messages []models.Message  `json:"messages"`
	Memory   []models.Exchange `json:"memory"`

	Mode             models.Mode `json:"mode"`
	HistoryCollapsed bool        `json:"history_collapsed"`
	HypothesisDraft  string      `json:"hypothesis_draft"`

	QueryPending      bool `json:"query_pending"`
	HypothesisPending bool `json:"hypothesis_pending"`

	// Notice is a transient user-facing message (e.g. a rejected hypothesis).
	Notice string `json:"notice,omitempty"`

	// Generation changes on every session load; completions carrying an
	// older generation are dropped.
	Generation uint64 `json:"generation"`
}

// InitialState is the state before any session is loaded.
func InitialState() State {
	return State{
		Messages: []models.Message{},
		Memory:   []models.Exchange{},
		Mode:     models.ModeQuery,
	}
}

// Event is an input to the reducer
type Event interface {
	EventName() string
}

// SessionLoaded replaces the conversation with a loaded session.
type SessionLoaded struct {
	Session models.Session
}

// QuerySubmitted appends the user message and its loading placeholder.
type QuerySubmitted struct {
	User        models.Message
	Placeholder models.Message
}

// QueryCompleted replaces the placeholder with the reply. Exchange is set
// only for successful answers.
type QueryCompleted struct {
	Generation    uint64
	PlaceholderID string
	Reply         models.Message
	Exchange      *models.Exchange
}

// HypothesisModeChanged switches the input surface.
type HypothesisModeChanged struct {
	Mode models.Mode
}

// HypothesisDraftChanged updates the hypothesis editor text.
type HypothesisDraftChanged struct {
	Text string
}

// HypothesisRejected records a local validation failure.
type HypothesisRejected struct {
	Notice string
}

// HypothesisSubmitted appends the framed hypothesis and its placeholder.
type HypothesisSubmitted struct {
	User        models.Message
	Placeholder models.Message
}

// HypothesisCompleted replaces the placeholder with the verdict.
type HypothesisCompleted struct {
	Generation    uint64
	PlaceholderID string
	Reply         models.Message
}

// HistoryToggled collapses or expands the message history.
type HistoryToggled struct{}

// NoticeCleared dismisses the current notice.
type NoticeCleared struct{}

func (SessionLoaded) EventName() string          { return "session_loaded" }
func (QuerySubmitted) EventName() string         { return "query_submitted" }
func (QueryCompleted) EventName() string         { return "query_completed" }
func (HypothesisModeChanged) EventName() string  { return "hypothesis_mode_changed" }
func (HypothesisDraftChanged) EventName() string { return "hypothesis_draft_changed" }
func (HypothesisRejected) EventName() string     { return "hypothesis_rejected" }
func (HypothesisSubmitted) EventName() string    { return "hypothesis_submitted" }
func (HypothesisCompleted) EventName() string    { return "hypothesis_completed" }
func (HistoryToggled) EventName() string         { return "history_toggled" }
func (NoticeCleared) EventName() string          { return "notice_cleared" }

// Reduce is the pure state transition function.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case SessionLoaded:
		next := InitialState()
		next.CaseID = e.Session.CaseID
		next.SessionID = e.Session.ID
		next.Ephemeral = e.Session.Ephemeral
		next.Generation = s.Generation + 1
		next.Messages = appendMessages(nil, e.Session.Messages...)
		next.Memory = RebuildWindow(next.Messages, config.MemoryWindowSize)
		if e.Session.HypothesisMode {
			next.Mode = models.ModeHypothesis
			next.HistoryCollapsed = true
		}
		return next

	case QuerySubmitted:
		s.Messages = appendMessages(s.Messages, e.User, e.Placeholder)
		s.QueryPending = true
		s.Notice = ""
		return s

	case QueryCompleted:
		if e.Generation != s.Generation {
			return s
		}
		s.Messages = replaceMessage(s.Messages, e.PlaceholderID, e.Reply)
		s.QueryPending = false
		if e.Exchange != nil {
			s.Memory = PushExchange(s.Memory, *e.Exchange, config.MemoryWindowSize)
		}
		return s

	case HypothesisModeChanged:
		if e.Mode == s.Mode {
			return s
		}
		s.Mode = e.Mode
		s.Notice = ""
		if e.Mode == models.ModeHypothesis {
			s.HistoryCollapsed = true
		} else {
			s.HypothesisDraft = ""
			s.HistoryCollapsed = false
		}
		return s

	case HypothesisDraftChanged:
		s.HypothesisDraft = e.Text
		s.Notice = ""
		return s

	case HypothesisRejected:
		s.Notice = e.Notice
		return s

	case HypothesisSubmitted:
		s.Messages = appendMessages(s.Messages, e.User, e.Placeholder)
		s.HypothesisDraft = ""
		s.HistoryCollapsed = false
		s.HypothesisPending = true
		s.Notice = ""
		return s

	case HypothesisCompleted:
		if e.Generation != s.Generation {
			return s
		}
		s.Messages = replaceMessage(s.Messages, e.PlaceholderID, e.Reply)
		s.HypothesisPending = false
		return s

	case HistoryToggled:
		s.HistoryCollapsed = !s.HistoryCollapsed
		return s

	case NoticeCleared:
		s.Notice = ""
		return s
	}
	return s
}

func appendMessages(msgs []models.Message, extra ...models.Message) []models.Message {
	out := make([]models.Message, 0, len(msgs)+len(extra))
	out = append(out, msgs...)
	return append(out, extra...)
}

// replaceMessage swaps the message with the given id for a new value.
// An unknown id appends the reply so a result is never lost.
func replaceMessage(msgs []models.Message, id string, reply models.Message) []models.Message {
	out := make([]models.Message, len(msgs), len(msgs)+1)
	copy(out, msgs)
	for i := range out {
		if out[i].ID == id {
			out[i] = reply
			return out
		}
	}
	return append(out, reply)
}
