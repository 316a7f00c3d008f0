package forensicapi

import (
	"context"
	"net/http"
	"strings"

	models "flowbot/internal/domain/models/assistant"
	svc "flowbot/internal/domain/services/assistant"
)

const (
	pathAsk            = "/api/ai/queries/ask/"
	pathTestHypothesis = "/api/ai/queries/test_hypothesis/"
	pathAutocomplete   = "/api/ai/queries/get_autocomplete_entities/"
	pathAnalyzeCase    = "/api/ai/queries/analyze_case_on_load/"
	pathPin            = "/api/ai/report-items/pin_ai_response/"
)

type askResponse struct {
	Summary            string                `json:"summary"`
	Evidence           []wireEvidence        `json:"evidence"`
	ResultsCount       int                   `json:"results_count"`
	Confidence         float64               `json:"confidence"`
	ProcessingTime     float64               `json:"processing_time"`
	SuggestedFollowups []string              `json:"suggested_followups"`
	EmbeddedComponent  *models.Visualization `json:"embedded_component"`
}

// Ask implements svc.QueryService
func (c *Client) Ask(ctx context.Context, req *svc.AskRequest) (*svc.AskResponse, error) {
	history := req.ConversationHistory
	if history == nil {
		history = []models.Exchange{}
	}
	in := svc.AskRequest{Query: req.Query, CaseID: req.CaseID, ConversationHistory: history}

	var out askResponse
	if err := c.do(ctx, http.MethodPost, pathAsk, nil, in, &out); err != nil {
		return nil, err
	}

	return &svc.AskResponse{
		Query:              req.Query,
		Summary:            out.Summary,
		Confidence:         out.Confidence,
		Evidence:           evidenceModels(out.Evidence),
		ResultsCount:       out.ResultsCount,
		ProcessingTime:     out.ProcessingTime,
		SuggestedFollowups: out.SuggestedFollowups,
		EmbeddedComponent:  out.EmbeddedComponent,
	}, nil
}

type hypothesisResponse struct {
	Hypothesis            string               `json:"hypothesis"`
	Conclusion            models.Conclusion    `json:"conclusion"`
	Confidence            float64              `json:"confidence"`
	Analysis              string               `json:"analysis"`
	SupportingEvidence    []wireEvidence       `json:"supporting_evidence"`
	ContradictoryEvidence []wireEvidence       `json:"contradictory_evidence"`
	EvidenceCount         models.EvidenceCount `json:"evidence_count"`
}

// TestHypothesis implements svc.HypothesisService
func (c *Client) TestHypothesis(ctx context.Context, req *svc.HypothesisRequest) (*models.HypothesisResult, error) {
	var out hypothesisResponse
	if err := c.do(ctx, http.MethodPost, pathTestHypothesis, nil, req, &out); err != nil {
		return nil, err
	}

	conclusion := models.Conclusion(strings.ToLower(string(out.Conclusion)))
	if !conclusion.Valid() {
		c.logger.Warn("unknown hypothesis conclusion", "conclusion", out.Conclusion)
		conclusion = models.ConclusionInconclusive
	}
	if out.Hypothesis == "" {
		out.Hypothesis = req.Hypothesis
	}
	return &models.HypothesisResult{
		Hypothesis:            out.Hypothesis,
		Conclusion:            conclusion,
		Confidence:            out.Confidence,
		Analysis:              out.Analysis,
		EvidenceCount:         out.EvidenceCount,
		SupportingEvidence:    evidenceModels(out.SupportingEvidence),
		ContradictoryEvidence: evidenceModels(out.ContradictoryEvidence),
	}, nil
}

type autocompleteRequest struct {
	CaseID     string `json:"case_id"`
	EntityType string `json:"entity_type"`
}

type autocompleteResponse struct {
	Entities []struct {
		EntityType string `json:"entity_type"`
		Value      string `json:"value"`
		Count      int    `json:"count"`
	} `json:"entities"`
	Contacts []string `json:"contacts"`
	Devices  []string `json:"devices"`
}

// Suggest implements svc.AutocompleteService. Contacts and devices come
// first for their intents, then entity values by frequency.
func (c *Client) Suggest(ctx context.Context, caseID string, intent svc.EntityIntent) ([]string, error) {
	var out autocompleteResponse
	in := autocompleteRequest{CaseID: caseID, EntityType: string(intent)}
	if err := c.do(ctx, http.MethodPost, pathAutocomplete, nil, in, &out); err != nil {
		return nil, err
	}

	var candidates []string
	switch intent {
	case svc.IntentContact:
		candidates = append(candidates, out.Contacts...)
	case svc.IntentDevice:
		candidates = append(candidates, out.Devices...)
	}
	for _, e := range out.Entities {
		candidates = append(candidates, e.Value)
	}
	return candidates, nil
}

type analyzeRequest struct {
	CaseID string `json:"case_id"`
}

type analyzeResponse struct {
	svc.CaseAnalysis
	EntitySummary struct {
		TotalTypes  int      `json:"total_types"`
		Types       []string `json:"types"`
		DeviceCount int      `json:"device_count"`
	} `json:"entity_summary"`
}

// AnalyzeCase implements svc.CaseAnalyzer
func (c *Client) AnalyzeCase(ctx context.Context, caseID string) (*svc.CaseAnalysis, error) {
	var out analyzeResponse
	if err := c.do(ctx, http.MethodPost, pathAnalyzeCase, nil, analyzeRequest{CaseID: caseID}, &out); err != nil {
		return nil, err
	}
	a := out.CaseAnalysis
	a.EntitySummary = make(map[string]int, len(out.EntitySummary.Types))
	for _, t := range out.EntitySummary.Types {
		a.EntitySummary[t]++
	}
	if out.EntitySummary.DeviceCount > 0 {
		a.EntitySummary["devices"] = out.EntitySummary.DeviceCount
	}
	return &a, nil
}

// PinResponse implements svc.PinService
func (c *Client) PinResponse(ctx context.Context, req *svc.PinRequest) error {
	return c.do(ctx, http.MethodPost, pathPin, nil, req, nil)
}
