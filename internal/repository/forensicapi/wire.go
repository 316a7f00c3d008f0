package forensicapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	models "flowbot/internal/domain/models/assistant"
)

// wireID accepts the backend's integer primary keys as well as strings.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = wireID(n.String())
	return nil
}

func idStrings(ids []wireID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

type wireEntity struct {
	Type       string `json:"type"`
	EntityType string `json:"entity_type"`
	Value      string `json:"value"`
}

type wireEvidence struct {
	ID         wireID                 `json:"id"`
	Type       string                 `json:"type"`
	Source     string                 `json:"source"`
	Device     string                 `json:"device"`
	Timestamp  *string                `json:"timestamp"`
	Content    string                 `json:"content"`
	SHA256     string                 `json:"sha256"`
	Confidence *float64               `json:"confidence"`
	Entities   []wireEntity           `json:"entities"`
	Location   *models.Location       `json:"location"`
	Metadata   map[string]interface{} `json:"metadata"`
}

func (w wireEvidence) toModel() models.Evidence {
	ev := models.Evidence{
		ID:       string(w.ID),
		Type:     w.Type,
		Source:   w.Source,
		Device:   w.Device,
		Content:  w.Content,
		SHA256:   w.SHA256,
		Location: w.Location,
		Metadata: w.Metadata,
	}
	if w.Timestamp != nil {
		ev.Timestamp = *w.Timestamp
	}
	if w.Confidence != nil {
		ev.Confidence = *w.Confidence
	}
	for _, e := range w.Entities {
		t := e.Type
		if t == "" {
			t = e.EntityType
		}
		ev.Entities = append(ev.Entities, models.Entity{Type: t, Value: e.Value})
	}
	return ev
}

func evidenceModels(items []wireEvidence) []models.Evidence {
	out := make([]models.Evidence, len(items))
	for i, w := range items {
		out[i] = w.toModel()
	}
	return out
}

type wireSession struct {
	ID             wireID        `json:"id"`
	Case           wireID        `json:"case"`
	Title          *string       `json:"title"`
	CreatedAt      time.Time     `json:"created_at"`
	LastMessageAt  *time.Time    `json:"last_message_at"`
	IsActive       *bool         `json:"is_active"`
	MessageCount   int           `json:"message_count"`
	HypothesisMode bool          `json:"hypothesis_mode"`
	HypothesisText *string       `json:"hypothesis_text"`
	MessagePreview string        `json:"message_preview"`
	Messages       []wireMessage `json:"messages"`
}

func (w wireSession) toModel() models.Session {
	s := models.Session{
		ID:             string(w.ID),
		CaseID:         string(w.Case),
		CreatedAt:      w.CreatedAt,
		LastMessageAt:  w.LastMessageAt,
		MessageCount:   w.MessageCount,
		HypothesisMode: w.HypothesisMode,
	}
	if w.Title != nil {
		s.Title = *w.Title
	}
	if s.Title == "" && w.MessagePreview != "" {
		s.Title = w.MessagePreview
	}
	if w.HypothesisText != nil {
		s.HypothesisText = *w.HypothesisText
	}
	for _, m := range w.Messages {
		s.Messages = append(s.Messages, m.toModel())
	}
	return s
}

type wireMessage struct {
	ID              wireID          `json:"id,omitempty"`
	MessageType     string          `json:"message_type"`
	Content         string          `json:"content"`
	CreatedAt       time.Time       `json:"created_at"`
	EvidenceIDs     []wireID        `json:"evidence_ids"`
	ConfidenceScore *float64        `json:"confidence_score"`
	ProcessingTime  *float64        `json:"processing_time"`
	Metadata        json.RawMessage `json:"metadata"`
}

func (w wireMessage) toModel() models.Message {
	msg := models.Message{
		ID:             string(w.ID),
		Role:           roleFromWire(w.MessageType),
		Content:        w.Content,
		CreatedAt:      w.CreatedAt,
		EvidenceIDs:    idStrings(w.EvidenceIDs),
		Confidence:     w.ConfidenceScore,
		ProcessingTime: w.ProcessingTime,
	}

	var extras models.MessageExtras
	if len(w.Metadata) > 0 && json.Unmarshal(w.Metadata, &extras) == nil {
		msg.ApplyExtras(extras)
	}
	return msg
}

// addMessageRequest is the add_message payload
type addMessageRequest struct {
	MessageType     string               `json:"message_type"`
	Content         string               `json:"content"`
	Metadata        models.MessageExtras `json:"metadata"`
	EvidenceIDs     []string             `json:"evidence_ids"`
	ConfidenceScore *float64             `json:"confidence_score,omitempty"`
	ProcessingTime  *float64             `json:"processing_time,omitempty"`
}

func newAddMessageRequest(msg *models.Message) addMessageRequest {
	ids := msg.EvidenceIDs
	if ids == nil {
		ids = []string{}
	}
	return addMessageRequest{
		MessageType:     roleToWire(msg.Role),
		Content:         msg.Content,
		Metadata:        msg.Extras(),
		EvidenceIDs:     ids,
		ConfidenceScore: msg.Confidence,
		ProcessingTime:  msg.ProcessingTime,
	}
}

// The backend stores assistant replies as "bot"; "system" is treated the
// same way.
func roleFromWire(t string) models.Role {
	if strings.EqualFold(t, "user") {
		return models.RoleUser
	}
	return models.RoleAssistant
}

func roleToWire(r models.Role) string {
	if r == models.RoleUser {
		return "user"
	}
	return "bot"
}
