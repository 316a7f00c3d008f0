package assistant

import (
	"context"

	models "flowbot/internal/domain/models/assistant"
)

// AskRequest is a natural-language question about one case
type AskRequest struct {
	Query               string            `json:"query"`
	CaseID              string            `json:"case_id"`
	ConversationHistory []models.Exchange `json:"conversation_history"`
}

// AskResponse is the query service's answer
type AskResponse struct {
	Query              string                `json:"query"`
	Summary            string                `json:"summary"`
	Confidence         float64               `json:"confidence"`
	Evidence           []models.Evidence     `json:"evidence"`
	ResultsCount       int                   `json:"results_count"`
	ProcessingTime     float64               `json:"processing_time"`
	SuggestedFollowups []string              `json:"suggested_followups"`
	EmbeddedComponent  *models.Visualization `json:"embedded_component,omitempty"`
}

// QueryService answers questions over case evidence
type QueryService interface {
	Ask(ctx context.Context, req *AskRequest) (*AskResponse, error)
}

// HypothesisRequest asks the backend to evaluate an investigative claim
type HypothesisRequest struct {
	CaseID     string `json:"case_id"`
	Hypothesis string `json:"hypothesis"`
}

// HypothesisService evaluates hypotheses against case evidence
type HypothesisService interface {
	TestHypothesis(ctx context.Context, req *HypothesisRequest) (*models.HypothesisResult, error)
}

// CreateSessionRequest is the payload for a new chat session
type CreateSessionRequest struct {
	CaseID         string `json:"case_id"`
	Title          string `json:"title,omitempty"`
	HypothesisMode bool   `json:"hypothesis_mode"`
	HypothesisText string `json:"hypothesis_text,omitempty"`
}

// SessionStore persists chat sessions scoped by case
type SessionStore interface {
	// ListSessions returns session summaries (without messages) for a case.
	ListSessions(ctx context.Context, caseID string) ([]models.Session, error)
	CreateSession(ctx context.Context, req *CreateSessionRequest) (*models.Session, error)
	// GetSession returns a session with its full message log.
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error
}

// EntityIntent is the entity family an autocomplete request is about
type EntityIntent string

const (
	IntentContact     EntityIntent = "contact"
	IntentTransaction EntityIntent = "transaction"
	IntentLocation    EntityIntent = "location"
	IntentCrypto      EntityIntent = "crypto_address"
	IntentDevice      EntityIntent = "device"
)

// AutocompleteService returns candidate entity values for an intent
type AutocompleteService interface {
	Suggest(ctx context.Context, caseID string, intent EntityIntent) ([]string, error)
}

// PinRequest adds an assistant answer to the case report
type PinRequest struct {
	CaseID      string                 `json:"case_id"`
	Title       string                 `json:"title"`
	Content     string                 `json:"content"`
	QueryID     string                 `json:"query_id,omitempty"`
	EvidenceIDs []string               `json:"evidence_ids"`
	Section     string                 `json:"section"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// PinService stores report items
type PinService interface {
	PinResponse(ctx context.Context, req *PinRequest) error
}

// CaseAnalysis flags what kinds of data a case contains
type CaseAnalysis struct {
	HasCryptoAddresses bool           `json:"has_crypto_addresses"`
	HasGPSData         bool           `json:"has_gps_data"`
	HasForeignNumbers  bool           `json:"has_foreign_numbers"`
	HasTimeGaps        bool           `json:"has_time_gaps"`
	HasFinancialData   bool           `json:"has_financial_data"`
	EntitySummary      map[string]int `json:"entity_summary"`
	EvidenceCount      int            `json:"evidence_count"`
}

// CaseAnalyzer inspects a case when a session is opened
type CaseAnalyzer interface {
	AnalyzeCase(ctx context.Context, caseID string) (*CaseAnalysis, error)
}
