package conversation

import (
	"strings"

	"flowbot/internal/config"
	models "flowbot/internal/domain/models/assistant"
)

// PushExchange returns a new window with e appended, keeping only the most
// recent capacity entries. The input slice is never modified.
func PushExchange(window []models.Exchange, e models.Exchange, capacity int) []models.Exchange {
	if capacity <= 0 {
		capacity = config.MemoryWindowSize
	}
	start := 0
	if len(window)+1 > capacity {
		start = len(window) + 1 - capacity
	}
	out := make([]models.Exchange, 0, len(window)-start+1)
	out = append(out, window[start:]...)
	return append(out, e)
}

// RebuildWindow reconstructs the memory window from a loaded message log:
// every user query directly answered by a non-error assistant message is one
// exchange. Hypothesis tests and the welcome message are skipped.
func RebuildWindow(messages []models.Message, capacity int) []models.Exchange {
	var window []models.Exchange
	for i := 0; i+1 < len(messages); i++ {
		q, a := messages[i], messages[i+1]
		if q.Role != models.RoleUser || a.Role != models.RoleAssistant {
			continue
		}
		if isHypothesisMessage(q) || a.Hypothesis != nil || a.Loading {
			continue
		}
		if a.Kind == models.MessageKindError || a.Kind == models.MessageKindWelcome {
			continue
		}
		window = PushExchange(window, models.Exchange{Query: q.Content, Response: a.Content}, capacity)
		i++
	}
	if window == nil {
		return []models.Exchange{}
	}
	return window
}

func isHypothesisMessage(m models.Message) bool {
	return m.Kind == models.MessageKindHypothesis || strings.HasPrefix(m.Content, hypothesisPrefix)
}
