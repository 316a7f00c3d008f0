package assistant

// Intent is an event the assistant core emits for the host to interpret.
// The core never navigates or scrolls on its own.
type Intent interface {
	IntentName() string
}

// RequestNavigate asks the host to open a dedicated view.
type RequestNavigate struct {
	Target      NavigationTarget `json:"target"`
	CaseID      string           `json:"case_id"`
	MessageID   string           `json:"message_id,omitempty"`
	EvidenceIDs []string         `json:"evidence_ids,omitempty"`
}

// RequestHighlight asks the host to bring one evidence item into focus.
type RequestHighlight struct {
	EvidenceID string `json:"evidence_id"`
}

func (RequestNavigate) IntentName() string  { return "navigate" }
func (RequestHighlight) IntentName() string { return "highlight" }
