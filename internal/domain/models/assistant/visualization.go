package assistant

import (
	"encoding/json"
	"fmt"

	"flowbot/internal/domain"
)

// VisualizationKind is the tag of an embedded visualization payload
type VisualizationKind string

const (
	VisualizationTimeline    VisualizationKind = "timeline"
	VisualizationMap         VisualizationKind = "map"
	VisualizationChatBubbles VisualizationKind = "chat_bubbles"
	VisualizationNetwork     VisualizationKind = "network"
)

// TimelineEvent is one entry of a timeline payload
type TimelineEvent struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Source    string `json:"source"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Device    string `json:"device,omitempty"`
}

// GeoPoint is one location of a map payload
type GeoPoint struct {
	ID        string  `json:"id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Timestamp string  `json:"timestamp,omitempty"`
	Label     string  `json:"label,omitempty"`
	Device    string  `json:"device,omitempty"`
}

// ChatLine is one message of a reconstructed conversation
type ChatLine struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Direction string `json:"type"` // sent | received
	App       string `json:"app,omitempty"`
}

// Visualization is a tagged union: exactly one of the data fields is set,
// matching Kind. On the wire it is {"type": kind, "data": ...}.
type Visualization struct {
	Kind     VisualizationKind
	Timeline []TimelineEvent
	Points   []GeoPoint
	Chat     []ChatLine
	Graph    *GraphData
}

type wireVisualization struct {
	Type VisualizationKind `json:"type"`
	Data json.RawMessage   `json:"data"`
}

// MarshalJSON encodes the payload with its type tag
func (v Visualization) MarshalJSON() ([]byte, error) {
	var data interface{}
	switch v.Kind {
	case VisualizationTimeline:
		data = nonNil(v.Timeline)
	case VisualizationMap:
		data = nonNil(v.Points)
	case VisualizationChatBubbles:
		data = nonNil(v.Chat)
	case VisualizationNetwork:
		if v.Graph == nil {
			data = GraphData{Nodes: []GraphNode{}, Links: []GraphLink{}}
		} else {
			data = v.Graph
		}
	default:
		return nil, fmt.Errorf("%w: unknown visualization type %q", domain.ErrValidation, v.Kind)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireVisualization{Type: v.Kind, Data: raw})
}

// UnmarshalJSON decodes data according to the type tag
func (v *Visualization) UnmarshalJSON(b []byte) error {
	var w wireVisualization
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	out := Visualization{Kind: w.Type}
	var target interface{}
	switch w.Type {
	case VisualizationTimeline:
		target = &out.Timeline
	case VisualizationMap:
		target = &out.Points
	case VisualizationChatBubbles:
		target = &out.Chat
	case VisualizationNetwork:
		out.Graph = &GraphData{}
		target = out.Graph
	default:
		return fmt.Errorf("%w: unknown visualization type %q", domain.ErrValidation, w.Type)
	}

	if len(w.Data) > 0 && string(w.Data) != "null" {
		if err := json.Unmarshal(w.Data, target); err != nil {
			return fmt.Errorf("decode %s payload: %w", w.Type, err)
		}
	}

	*v = out
	return nil
}

// Validate checks that the payload carries only the data of its kind.
func (v *Visualization) Validate() error {
	var carried []VisualizationKind
	if v.Timeline != nil {
		carried = append(carried, VisualizationTimeline)
	}
	if v.Points != nil {
		carried = append(carried, VisualizationMap)
	}
	if v.Chat != nil {
		carried = append(carried, VisualizationChatBubbles)
	}
	if v.Graph != nil {
		carried = append(carried, VisualizationNetwork)
	}
	if len(carried) > 1 {
		return fmt.Errorf("%w: visualization carries more than one payload", domain.ErrValidation)
	}
	if len(carried) == 1 && carried[0] != v.Kind {
		return fmt.Errorf("%w: %s payload carries %s data", domain.ErrValidation, v.Kind, carried[0])
	}

	switch v.Kind {
	case VisualizationTimeline, VisualizationMap, VisualizationChatBubbles:
		return nil
	case VisualizationNetwork:
		if v.Graph == nil {
			return fmt.Errorf("%w: network payload without graph data", domain.ErrValidation)
		}
		return v.Graph.Validate()
	}
	return fmt.Errorf("%w: unknown visualization type %q", domain.ErrValidation, v.Kind)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
