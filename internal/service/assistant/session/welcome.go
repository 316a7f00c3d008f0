package session

import (
	svc "flowbot/internal/domain/services/assistant"
)

const (
	welcomeText = "Hello! I'm FlowBot, your investigation assistant for this case. " +
		"Ask me about the evidence in plain language: messages between contacts, " +
		"locations, transactions, crypto addresses or devices. " +
		"Switch to hypothesis mode to test an investigative theory against the evidence."

	demoWelcomeText = "Hello! I'm FlowBot. You are exploring a sample case with " +
		"synthetic evidence, so feel free to try anything: ask about contacts, " +
		"locations or transactions, or test a hypothesis."
)

var defaultFollowups = []string{
	"Summarize the key findings in this case",
	"Who are the most frequent contacts?",
	"Show a timeline of recent activity",
}

// WelcomeFollowups turns a case analysis into proactive suggestions.
// A nil analysis yields the generic suggestions.
func WelcomeFollowups(a *svc.CaseAnalysis) []string {
	if a == nil {
		return append([]string(nil), defaultFollowups...)
	}

	var out []string
	if a.HasCryptoAddresses {
		out = append(out, "Show all cryptocurrency addresses found in this case")
	}
	if a.HasForeignNumbers {
		out = append(out, "List communications with foreign phone numbers")
	}
	if a.HasGPSData {
		out = append(out, "Show the location history on a map")
	}
	if a.HasFinancialData {
		out = append(out, "Summarize the financial transactions")
	}
	if a.HasTimeGaps {
		out = append(out, "Are there unusual gaps in device activity?")
	}
	if len(out) == 0 {
		return append([]string(nil), defaultFollowups...)
	}
	return out
}
