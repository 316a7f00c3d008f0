package assistant

import (
	"time"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// MessageKind tags what produced a message
type MessageKind string

const (
	MessageKindQuery      MessageKind = "query"
	MessageKindHypothesis MessageKind = "hypothesis"
	MessageKindError      MessageKind = "error"
	MessageKindWelcome    MessageKind = "welcome"
)

// Message is one entry of a session's message log.
// Messages are values: a loading placeholder is replaced by a new Message,
// never edited in place.
type Message struct {
	ID        string      `json:"id"`
	Role      Role        `json:"role"`
	Kind      MessageKind `json:"kind,omitempty"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`

	// EvidenceIDs is the only evidence reference that is persisted.
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
	// Evidence holds the full objects for the live view only.
	Evidence []Evidence `json:"evidence,omitempty"`

	SuggestedFollowups []string          `json:"suggested_followups,omitempty"`
	Actions            []Action          `json:"actions,omitempty"`
	Visualization      *Visualization    `json:"visualization,omitempty"`
	Hypothesis         *HypothesisResult `json:"hypothesis,omitempty"`
	Confidence         *float64          `json:"confidence,omitempty"`
	ProcessingTime     *float64          `json:"processing_time,omitempty"`
	ResultsCount       int               `json:"results_count,omitempty"`

	Loading   bool `json:"loading,omitempty"`
	Synthetic bool `json:"synthetic,omitempty"`
}

// Persistable reports whether the message may be written to the session store.
func (m Message) Persistable() bool {
	return !m.Loading && !m.Synthetic
}

// Exchange is one entry of the short-term conversation memory.
type Exchange struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

// MessageExtras are the display fields a store keeps next to a message's
// text so a reloaded session renders the same way.
type MessageExtras struct {
	ClientID           string            `json:"client_id,omitempty"`
	Kind               MessageKind       `json:"kind,omitempty"`
	SuggestedFollowups []string          `json:"suggested_followups,omitempty"`
	Actions            []Action          `json:"actions,omitempty"`
	Visualization      *Visualization    `json:"embedded_component,omitempty"`
	Hypothesis         *HypothesisResult `json:"hypothesis,omitempty"`
	ResultsCount       int               `json:"results_count,omitempty"`
}

// Extras returns the persisted display fields of m.
func (m Message) Extras() MessageExtras {
	return MessageExtras{
		ClientID:           m.ID,
		Kind:               m.Kind,
		SuggestedFollowups: m.SuggestedFollowups,
		Actions:            m.Actions,
		Visualization:      m.Visualization,
		Hypothesis:         m.Hypothesis,
		ResultsCount:       m.ResultsCount,
	}
}

// ApplyExtras restores display fields read back from a store.
func (m *Message) ApplyExtras(e MessageExtras) {
	m.Kind = e.Kind
	m.SuggestedFollowups = e.SuggestedFollowups
	m.Actions = e.Actions
	m.Visualization = e.Visualization
	m.Hypothesis = e.Hypothesis
	m.ResultsCount = e.ResultsCount
}
