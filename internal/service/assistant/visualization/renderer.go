// Package visualization mounts the embedded views attached to assistant
// messages.
package visualization

import (
	"fmt"
	"log/slog"
	"sync"

	"flowbot/internal/config"
	"flowbot/internal/domain"
	models "flowbot/internal/domain/models/assistant"
	"flowbot/internal/palette"
	"flowbot/internal/service/assistant/netgraph"
)

// DefaultGraphBounds is the inline drawing surface of a network view.
var DefaultGraphBounds = netgraph.Bounds{Width: 640, Height: config.InlineVisualizationHeight}

// View is a mounted visualization. Exactly one of the kind-specific fields
// is set.
type View struct {
	MessageID    string                   `json:"message_id"`
	CaseID       string                   `json:"case_id"`
	Kind         models.VisualizationKind `json:"kind"`
	InlineHeight int                      `json:"inline_height"`

	Timeline []TimelineDay    `json:"timeline,omitempty"`
	Map      *MapView         `json:"map,omitempty"`
	Chat     []ChatDay        `json:"chat,omitempty"`
	Graph    *netgraph.Engine `json:"-"`
}

// GraphSnapshot returns the network view state, or nil for other kinds.
func (v *View) GraphSnapshot() *netgraph.Snapshot {
	if v.Graph == nil {
		return nil
	}
	s := v.Graph.Snapshot()
	return &s
}

// Renderer dispatches payloads on their kind tag and keeps one mounted view
// per message, so the inline and full views share state.
type Renderer struct {
	palette *palette.Registry
	logger  *slog.Logger

	mu    sync.Mutex
	views map[string]*View
}

// NewRenderer creates a renderer
func NewRenderer(colors *palette.Registry, logger *slog.Logger) *Renderer {
	if colors == nil {
		colors = palette.MustDefault()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		palette: colors,
		logger:  logger,
		views:   make(map[string]*View),
	}
}

// Mount builds (or returns the cached) view for a message's payload.
func (r *Renderer) Mount(caseID, messageID string, payload *models.Visualization) (*View, error) {
	if payload == nil {
		return nil, fmt.Errorf("message %s has no visualization: %w", messageID, domain.ErrNotFound)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.views[messageID]; ok && v.Kind == payload.Kind {
		if v.Graph != nil {
			if err := v.Graph.SetData(*payload.Graph); err != nil {
				return nil, err
			}
		}
		return v, nil
	}

	v := &View{
		MessageID:    messageID,
		CaseID:       caseID,
		Kind:         payload.Kind,
		InlineHeight: config.InlineVisualizationHeight,
	}

	switch payload.Kind {
	case models.VisualizationTimeline:
		v.Timeline = GroupTimeline(payload.Timeline)
	case models.VisualizationMap:
		m := BuildMap(payload.Points)
		v.Map = &m
	case models.VisualizationChatBubbles:
		v.Chat = GroupChat(payload.Chat)
	case models.VisualizationNetwork:
		engine, err := netgraph.NewEngine(*payload.Graph, DefaultGraphBounds, r.palette)
		if err != nil {
			return nil, err
		}
		v.Graph = engine
	default:
		return nil, fmt.Errorf("%w: unknown visualization type %q", domain.ErrValidation, payload.Kind)
	}

	r.views[messageID] = v
	r.logger.Debug("visualization mounted",
		"message_id", messageID,
		"kind", payload.Kind,
	)
	return v, nil
}

// View returns the mounted view of a message
func (r *Renderer) View(messageID string) (*View, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[messageID]
	if !ok {
		return nil, fmt.Errorf("visualization for message %s: %w", messageID, domain.ErrNotFound)
	}
	return v, nil
}

// Graph returns the graph engine mounted for a message
func (r *Renderer) Graph(messageID string) (*netgraph.Engine, error) {
	v, err := r.View(messageID)
	if err != nil {
		return nil, err
	}
	if v.Graph == nil {
		return nil, fmt.Errorf("%w: message %s shows a %s, not a network", domain.ErrValidation, messageID, v.Kind)
	}
	return v.Graph, nil
}

// FullView returns the request to open the dedicated view for a mounted
// visualization. The renderer never navigates itself.
func (r *Renderer) FullView(messageID string) (models.RequestNavigate, error) {
	v, err := r.View(messageID)
	if err != nil {
		return models.RequestNavigate{}, err
	}
	return models.RequestNavigate{
		Target:    TargetFor(v.Kind),
		CaseID:    v.CaseID,
		MessageID: messageID,
	}, nil
}

// Reset drops every mounted view (used when the active session changes).
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = make(map[string]*View)
}

// TargetFor maps a visualization kind to its dedicated view
func TargetFor(kind models.VisualizationKind) models.NavigationTarget {
	switch kind {
	case models.VisualizationTimeline:
		return models.TargetTimeline
	case models.VisualizationMap:
		return models.TargetMap
	case models.VisualizationChatBubbles:
		return models.TargetChat
	default:
		return models.TargetNetwork
	}
}
