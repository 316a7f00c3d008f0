package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"flowbot/internal/handler/sse"
	"flowbot/internal/httputil"
	"flowbot/internal/service/assistant/autocomplete"
	"flowbot/internal/service/assistant/conversation"
)

// Event names on the stream
const (
	EventState       = "state"
	EventIntent      = "intent"
	EventSuggestions = "suggestions"
)

// Forward publishes conversation notifications and suggestion updates on
// the hub. The returned func stops forwarding.
func Forward(hub *sse.Hub, conv *conversation.Controller, suggester *autocomplete.Suggester) func() {
	stopConversation := conv.Subscribe(func(n conversation.Notification) {
		if n.Intent != nil {
			hub.Publish(EventIntent, n)
			return
		}
		hub.Publish(EventState, n)
	})
	stopSuggestions := suggester.Subscribe(func(s autocomplete.Suggestions) {
		hub.Publish(EventSuggestions, s)
	})
	return func() {
		stopConversation()
		stopSuggestions()
	}
}

// EventsHandler streams state transitions and intents to the front end
type EventsHandler struct {
	hub          *sse.Hub
	conversation *conversation.Controller
	config       *sse.Config
	logger       *slog.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *sse.Hub, conv *conversation.Controller, cfg *sse.Config, logger *slog.Logger) *EventsHandler {
	if cfg == nil {
		cfg = sse.DefaultConfig()
	}
	return &EventsHandler{
		hub:          hub,
		conversation: conv,
		config:       cfg,
		logger:       logger,
	}
}

// Stream sends the current state, then every event published on the hub
// GET /api/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	clientID := uuid.New().String()

	// Subscribe before reading the state so no transition falls in between.
	events, unsubscribe := h.hub.Subscribe(clientID)
	defer unsubscribe()

	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	h.logger.Debug("event stream opened", "client_id", clientID)
	defer h.logger.Debug("event stream closed", "client_id", clientID)

	initial := conversation.Notification{Event: "snapshot", State: h.conversation.State()}
	if err := writer.WriteEvent(sse.Event{Name: EventState, Data: initial}); err != nil {
		h.logger.Info("client disconnected before first event", "client_id", clientID, "error", err)
		return
	}

	keepAlive := sse.NewTickerKeepAlive(h.config.KeepAliveInterval)
	stopped := keepAlive.Start(writer, h.logger)
	defer keepAlive.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writer.WriteEvent(ev); err != nil {
				h.logger.Info("client disconnected during event write",
					"client_id", clientID,
					"error", err,
				)
				return
			}
		case <-stopped:
			return
		case <-r.Context().Done():
			return
		}
	}
}
