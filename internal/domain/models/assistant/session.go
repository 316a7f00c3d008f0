package assistant

import (
	"sort"
	"strings"
	"time"
)

// titleRunes is how much of the first question becomes a session title.
const titleRunes = 50

// Session is a case-scoped conversation thread.
// Sessions change only by appending messages.
type Session struct {
	ID             string     `json:"id"`
	CaseID         string     `json:"case_id"`
	Title          string     `json:"title"`
	HypothesisMode bool       `json:"hypothesis_mode"`
	HypothesisText string     `json:"hypothesis_text,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
	MessageCount   int        `json:"message_count"`
	Messages       []Message  `json:"messages,omitempty"`

	// Ephemeral sessions exist only in memory because the store was unreachable.
	Ephemeral bool `json:"ephemeral,omitempty"`
}

// ActivityAt is the time used for most-recent-first ordering.
func (s *Session) ActivityAt() time.Time {
	if s.LastMessageAt != nil {
		return *s.LastMessageAt
	}
	return s.CreatedAt
}

// SortByRecency orders sessions most-recent-first, breaking ties by
// creation time and then id so the order is stable across stores.
func SortByRecency(sessions []Session) {
	sort.SliceStable(sessions, func(i, j int) bool {
		ai, aj := sessions[i].ActivityAt(), sessions[j].ActivityAt()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})
}

// DeriveSessionTitle turns a session's first question into its title.
func DeriveSessionTitle(question string) string {
	question = strings.Join(strings.Fields(question), " ")
	runes := []rune(question)
	if len(runes) <= titleRunes {
		return question
	}
	return strings.TrimSpace(string(runes[:titleRunes])) + "..."
}
