package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"flowbot/internal/domain"
	models "flowbot/internal/domain/models/assistant"
	"flowbot/internal/httputil"
	"flowbot/internal/service/assistant/autocomplete"
	"flowbot/internal/service/assistant/conversation"
	"flowbot/internal/service/assistant/netgraph"
	"flowbot/internal/service/assistant/session"
	"flowbot/internal/service/assistant/visualization"
)

// AssistantHandler exposes the live conversation of the bridge
type AssistantHandler struct {
	sessions      *session.Manager
	conversation  *conversation.Controller
	suggester     *autocomplete.Suggester
	submitTimeout time.Duration
	logger        *slog.Logger
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(
	sessions *session.Manager,
	conv *conversation.Controller,
	suggester *autocomplete.Suggester,
	submitTimeout time.Duration,
	logger *slog.Logger,
) *AssistantHandler {
	if submitTimeout == 0 {
		submitTimeout = 2 * time.Minute
	}
	return &AssistantHandler{
		sessions:      sessions,
		conversation:  conv,
		suggester:     suggester,
		submitTimeout: submitTimeout,
		logger:        logger,
	}
}

// Register adds the assistant routes to mux
func (h *AssistantHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	// Sessions
	mux.HandleFunc("GET /api/cases/{caseID}/sessions", h.ListSessions)
	mux.HandleFunc("POST /api/cases/{caseID}/sessions", h.CreateSession)
	mux.HandleFunc("POST /api/cases/{caseID}/open", h.OpenCase)
	mux.HandleFunc("POST /api/sessions/{id}/load", h.LoadSession)

	// Conversation
	mux.HandleFunc("GET /api/conversation", h.GetConversation)
	mux.HandleFunc("POST /api/conversation/query", h.SubmitQuery)
	mux.HandleFunc("PUT /api/conversation/mode", h.SetMode)
	mux.HandleFunc("PUT /api/conversation/draft", h.SetDraft)
	mux.HandleFunc("PUT /api/conversation/hypothesis", h.SetHypothesisMode)
	mux.HandleFunc("POST /api/conversation/hypothesis", h.SubmitHypothesis)
	mux.HandleFunc("POST /api/conversation/cancel", h.Cancel)
	mux.HandleFunc("POST /api/conversation/history/toggle", h.ToggleHistory)
	mux.HandleFunc("DELETE /api/conversation/notice", h.ClearNotice)
	mux.HandleFunc("GET /api/autocomplete", h.Autocomplete)

	// Messages and their visualizations
	mux.HandleFunc("POST /api/messages/{id}/actions/{kind}", h.PerformAction)
	mux.HandleFunc("POST /api/messages/{id}/pin", h.Pin)
	mux.HandleFunc("POST /api/messages/{id}/full-view", h.RequestFullView)
	mux.HandleFunc("GET /api/messages/{id}/visualization", h.GetVisualization)
	mux.HandleFunc("GET /api/messages/{id}/graph.png", h.ExportGraphPNG)
	mux.HandleFunc("GET /api/messages/{id}/graph.pdf", h.ExportGraphPDF)
	mux.HandleFunc("POST /api/messages/{id}/graph/pointer", h.GraphPointer)
	mux.HandleFunc("PUT /api/messages/{id}/graph/viewport", h.GraphViewport)
	mux.HandleFunc("POST /api/evidence/{id}/highlight", h.HighlightEvidence)
}

// HealthCheck reports that the bridge is up
// GET /health
func (h *AssistantHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListSessions lists the sessions of a case, most recent first
// GET /api/cases/{caseID}/sessions
func (h *AssistantHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	caseID, ok := PathParam(w, r, "caseID", "Case ID")
	if !ok {
		return
	}

	sessions, err := h.sessions.List(r.Context(), caseID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sessions)
}

type createSessionRequest struct {
	HypothesisMode bool   `json:"hypothesis_mode"`
	HypothesisText string `json:"hypothesis_text"`
}

// CreateSession starts a new conversation for a case and makes it active
// POST /api/cases/{caseID}/sessions
func (h *AssistantHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	caseID, ok := PathParam(w, r, "caseID", "Case ID")
	if !ok {
		return
	}

	var req createSessionRequest
	if err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.sessions.Start(r.Context(), caseID, req.HypothesisMode, req.HypothesisText)
	if err != nil {
		handleError(w, err)
		return
	}
	h.conversation.LoadSession(sess)
	httputil.RespondJSON(w, http.StatusCreated, h.conversation.State())
}

// OpenCase loads the most recent session of a case, creating one if needed
// POST /api/cases/{caseID}/open
func (h *AssistantHandler) OpenCase(w http.ResponseWriter, r *http.Request) {
	caseID, ok := PathParam(w, r, "caseID", "Case ID")
	if !ok {
		return
	}

	sess, err := h.sessions.Open(r.Context(), caseID)
	if err != nil {
		handleError(w, err)
		return
	}
	h.conversation.LoadSession(sess)
	httputil.RespondJSON(w, http.StatusOK, h.conversation.State())
}

// LoadSession switches the conversation to a stored session
// POST /api/sessions/{id}/load
func (h *AssistantHandler) LoadSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return
	}

	sess, err := h.sessions.Load(r.Context(), sessionID)
	if err != nil {
		handleError(w, err)
		return
	}
	h.conversation.LoadSession(sess)
	httputil.RespondJSON(w, http.StatusOK, h.conversation.State())
}

// GetConversation returns the conversation state
// GET /api/conversation
func (h *AssistantHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.conversation.State())
}

type textRequest struct {
	Text string `json:"text"`
}

type replyResponse struct {
	Message *models.Message `json:"message"`
}

// SubmitQuery asks a question and waits for the reply
// POST /api/conversation/query
// Backend failures come back as an error reply with 200; 409 while another
// query is outstanding.
func (h *AssistantHandler) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := h.submitContext(r)
	defer cancel()

	reply, err := h.conversation.Submit(ctx, req.Text)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, replyResponse{Message: reply})
}

type modeRequest struct {
	Mode models.Mode `json:"mode"`
}

// SetMode switches between query and hypothesis mode
// PUT /api/conversation/mode
func (h *AssistantHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.conversation.SetMode(req.Mode); err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, h.conversation.State())
}

// SetDraft updates the hypothesis editor text
// PUT /api/conversation/draft
func (h *AssistantHandler) SetDraft(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.conversation.SetHypothesisDraft(req.Text)
	httputil.RespondJSON(w, http.StatusOK, h.conversation.State())
}

type hypothesisModeRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetHypothesisMode enters or leaves hypothesis mode; without a body it
// toggles.
// PUT /api/conversation/hypothesis
func (h *AssistantHandler) SetHypothesisMode(w http.ResponseWriter, r *http.Request) {
	var req hypothesisModeRequest
	if err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Enabled == nil {
		h.conversation.ToggleHypothesisMode()
	} else {
		mode := models.ModeQuery
		if *req.Enabled {
			mode = models.ModeHypothesis
		}
		if err := h.conversation.SetMode(mode); err != nil {
			handleError(w, err)
			return
		}
	}
	httputil.RespondJSON(w, http.StatusOK, h.conversation.State())
}

// SubmitHypothesis tests the draft, optionally replacing it first
// POST /api/conversation/hypothesis
// A draft of the wrong length is rejected with 400 and a notice in the state.
func (h *AssistantHandler) SubmitHypothesis(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Text != "" {
		h.conversation.SetHypothesisDraft(req.Text)
	}

	ctx, cancel := h.submitContext(r)
	defer cancel()

	reply, err := h.conversation.SubmitHypothesis(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, replyResponse{Message: reply})
}

// Cancel leaves hypothesis mode
// POST /api/conversation/cancel
func (h *AssistantHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.conversation.Cancel()
	httputil.RespondJSON(w, http.StatusOK, h.conversation.State())
}

// ToggleHistory collapses or expands the history
// POST /api/conversation/history/toggle
func (h *AssistantHandler) ToggleHistory(w http.ResponseWriter, r *http.Request) {
	h.conversation.ToggleHistory()
	httputil.RespondJSON(w, http.StatusOK, h.conversation.State())
}

// ClearNotice dismisses the current notice
// DELETE /api/conversation/notice
func (h *AssistantHandler) ClearNotice(w http.ResponseWriter, r *http.Request) {
	h.conversation.ClearNotice()
	w.WriteHeader(http.StatusNoContent)
}

// Autocomplete suggests completions for the text being typed
// GET /api/autocomplete?text=...&sync=true
// By default the request is debounced and the result is pushed on the event
// stream (202 with the current list). With sync=true the lookup runs
// immediately and its result is returned.
func (h *AssistantHandler) Autocomplete(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	st := h.conversation.State()
	if st.CaseID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "no case is open")
		return
	}

	sync := false
	if v := r.URL.Query().Get("sync"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "sync must be a boolean")
			return
		}
		sync = parsed
	}

	if sync {
		httputil.RespondJSON(w, http.StatusOK, h.suggester.Suggest(r.Context(), st.CaseID, text, st.Mode))
		return
	}
	h.suggester.Type(st.CaseID, text, st.Mode)
	httputil.RespondJSON(w, http.StatusAccepted, h.suggester.Current())
}

// PerformAction emits the navigation intent of a message action
// POST /api/messages/{id}/actions/{kind}
func (h *AssistantHandler) PerformAction(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathParam(w, r, "id", "Message ID")
	if !ok {
		return
	}
	kind, ok := PathParam(w, r, "kind", "Action")
	if !ok {
		return
	}

	intent, err := h.conversation.PerformAction(messageID, models.ActionKind(kind))
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, intent)
}

type pinRequest struct {
	Section string `json:"section"`
}

// Pin adds an answer to the case report
// POST /api/messages/{id}/pin
// Returns 202: the report item is written in the background.
func (h *AssistantHandler) Pin(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathParam(w, r, "id", "Message ID")
	if !ok {
		return
	}

	var req pinRequest
	if err := httputil.ParseOptionalJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	pin, err := h.conversation.Pin(messageID, req.Section)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusAccepted, pin)
}

// RequestFullView emits the request to open a visualization full size
// POST /api/messages/{id}/full-view
func (h *AssistantHandler) RequestFullView(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathParam(w, r, "id", "Message ID")
	if !ok {
		return
	}

	intent, err := h.conversation.RequestFullView(messageID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, intent)
}

// HighlightEvidence asks the host to focus one evidence item
// POST /api/evidence/{id}/highlight
func (h *AssistantHandler) HighlightEvidence(w http.ResponseWriter, r *http.Request) {
	evidenceID, ok := PathParam(w, r, "id", "Evidence ID")
	if !ok {
		return
	}

	intent, err := h.conversation.HighlightEvidence(evidenceID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, intent)
}

type visualizationResponse struct {
	*visualization.View
	Graph *netgraph.Snapshot `json:"graph,omitempty"`
}

// GetVisualization returns the mounted view of a message
// GET /api/messages/{id}/visualization
func (h *AssistantHandler) GetVisualization(w http.ResponseWriter, r *http.Request) {
	messageID, ok := PathParam(w, r, "id", "Message ID")
	if !ok {
		return
	}

	view, err := h.conversation.MountVisualization(messageID)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, visualizationResponse{View: view, Graph: view.GraphSnapshot()})
}

// ExportGraphPNG renders a network view as PNG
// GET /api/messages/{id}/graph.png
func (h *AssistantHandler) ExportGraphPNG(w http.ResponseWriter, r *http.Request) {
	engine, messageID, ok := h.graph(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := engine.ExportPNG(&buf); err != nil {
		h.logger.Error("graph export failed", "message_id", messageID, "error", err)
		handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "network-"+messageID+".png"))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// ExportGraphPDF is advertised by the view but not implemented
// GET /api/messages/{id}/graph.pdf
func (h *AssistantHandler) ExportGraphPDF(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := h.graph(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := engine.ExportPDF(&buf); err != nil {
		handleError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	_, _ = buf.WriteTo(w)
}

type pointerRequest struct {
	Action string  `json:"action"` // move | click | select | clear
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	NodeID string  `json:"node_id"`
}

// GraphPointer forwards pointer input to a network view
// POST /api/messages/{id}/graph/pointer
func (h *AssistantHandler) GraphPointer(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := h.graph(w, r)
	if !ok {
		return
	}

	var req pointerRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch req.Action {
	case "move", "":
		engine.PointerMove(req.X, req.Y)
	case "click":
		engine.Click(req.X, req.Y)
	case "select":
		if _, err := engine.Select(req.NodeID); err != nil {
			handleError(w, err)
			return
		}
	case "clear":
		engine.ClearSelection()
	default:
		handleError(w, fmt.Errorf("%w: unknown pointer action %q", domain.ErrValidation, req.Action))
		return
	}
	httputil.RespondJSON(w, http.StatusOK, engine.Snapshot())
}

type viewportRequest struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Fullscreen *bool   `json:"fullscreen"`
}

// GraphViewport resizes a network view or toggles its full-screen mode
// PUT /api/messages/{id}/graph/viewport
func (h *AssistantHandler) GraphViewport(w http.ResponseWriter, r *http.Request) {
	engine, _, ok := h.graph(w, r)
	if !ok {
		return
	}

	var req viewportRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		httputil.RespondError(w, http.StatusBadRequest, "width and height must be positive")
		return
	}

	bounds := netgraph.Bounds{Width: req.Width, Height: req.Height}
	if req.Fullscreen != nil {
		engine.SetFullscreen(*req.Fullscreen, bounds)
	} else {
		engine.Resize(bounds)
	}
	httputil.RespondJSON(w, http.StatusOK, engine.Snapshot())
}

// graph resolves the graph engine of a message, mounting the view on first
// use. It writes the error response itself.
func (h *AssistantHandler) graph(w http.ResponseWriter, r *http.Request) (*netgraph.Engine, string, bool) {
	messageID, ok := PathParam(w, r, "id", "Message ID")
	if !ok {
		return nil, "", false
	}
	if _, err := h.conversation.MountVisualization(messageID); err != nil {
		handleError(w, err)
		return nil, "", false
	}
	engine, err := h.conversation.Renderer().Graph(messageID)
	if err != nil {
		handleError(w, err)
		return nil, "", false
	}
	return engine, messageID, true
}

// submitContext detaches a submission from the request so the reply still
// lands in the conversation when the client goes away.
func (h *AssistantHandler) submitContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), h.submitTimeout)
}
