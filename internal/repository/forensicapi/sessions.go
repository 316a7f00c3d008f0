package forensicapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	models "flowbot/internal/domain/models/assistant"
	svc "flowbot/internal/domain/services/assistant"
)

const pathSessions = "/api/ai/chat-sessions/"

type createSessionRequest struct {
	Case           string `json:"case"`
	Title          string `json:"title,omitempty"`
	HypothesisMode bool   `json:"hypothesis_mode"`
	HypothesisText string `json:"hypothesis_text,omitempty"`
}

// ListSessions implements svc.SessionStore
func (c *Client) ListSessions(ctx context.Context, caseID string) ([]models.Session, error) {
	var out []wireSession
	q := url.Values{"case_id": {caseID}}
	if err := c.do(ctx, http.MethodGet, pathSessions+"list_for_case/", q, nil, &out); err != nil {
		return nil, err
	}

	sessions := make([]models.Session, 0, len(out))
	for _, w := range out {
		if w.IsActive != nil && !*w.IsActive {
			continue
		}
		sessions = append(sessions, w.toModel())
	}
	return sessions, nil
}

// CreateSession implements svc.SessionStore
func (c *Client) CreateSession(ctx context.Context, req *svc.CreateSessionRequest) (*models.Session, error) {
	in := createSessionRequest{
		Case:           req.CaseID,
		Title:          req.Title,
		HypothesisMode: req.HypothesisMode,
		HypothesisText: req.HypothesisText,
	}
	var out wireSession
	if err := c.do(ctx, http.MethodPost, pathSessions, nil, in, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("create session: backend returned no id")
	}
	s := out.toModel()
	if s.CaseID == "" {
		s.CaseID = req.CaseID
	}
	return &s, nil
}

// GetSession implements svc.SessionStore
func (c *Client) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var out wireSession
	if err := c.do(ctx, http.MethodGet, pathSessions+url.PathEscape(sessionID)+"/", nil, nil, &out); err != nil {
		return nil, err
	}
	s := out.toModel()
	return &s, nil
}

// AppendMessage implements svc.SessionStore. The backend keeps the message
// counters and generates the session title.
func (c *Client) AppendMessage(ctx context.Context, sessionID string, msg *models.Message) error {
	path := pathSessions + url.PathEscape(sessionID) + "/add_message/"
	return c.do(ctx, http.MethodPost, path, nil, newAddMessageRequest(msg), nil)
}
