package assistant

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"flowbot/internal/domain"
)

func TestVisualizationUnmarshalByTag(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, v Visualization)
	}{
		{
			name:  "timeline",
			input: `{"type":"timeline","data":[{"id":"e1","timestamp":"2024-01-15T10:00:00Z","source":"WhatsApp","content":"hi","type":"message"}]}`,
			check: func(t *testing.T, v Visualization) {
				if len(v.Timeline) != 1 || v.Timeline[0].Source != "WhatsApp" {
					t.Errorf("unexpected timeline %+v", v.Timeline)
				}
			},
		},
		{
			name:  "map",
			input: `{"type":"map","data":[{"id":"p1","lat":25.2,"lon":55.3}]}`,
			check: func(t *testing.T, v Visualization) {
				if len(v.Points) != 1 || v.Points[0].Lat != 25.2 {
					t.Errorf("unexpected points %+v", v.Points)
				}
			},
		},
		{
			name:  "chat bubbles",
			input: `{"type":"chat_bubbles","data":[{"id":"m1","sender":"Alex","content":"yo","timestamp":"2024-01-15T10:00:00Z","type":"sent"}]}`,
			check: func(t *testing.T, v Visualization) {
				if len(v.Chat) != 1 || v.Chat[0].Direction != "sent" {
					t.Errorf("unexpected chat %+v", v.Chat)
				}
			},
		},
		{
			name:  "network",
			input: `{"type":"network","data":{"nodes":[{"id":"a","group":"person","label":"A"}],"links":[]}}`,
			check: func(t *testing.T, v Visualization) {
				if v.Graph == nil || len(v.Graph.Nodes) != 1 {
					t.Errorf("unexpected graph %+v", v.Graph)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Visualization
			if err := json.Unmarshal([]byte(tt.input), &v); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if err := v.Validate(); err != nil {
				t.Fatalf("validate: %v", err)
			}
			tt.check(t, v)
		})
	}
}

func TestVisualizationRejectsUnknownTag(t *testing.T) {
	var v Visualization
	err := json.Unmarshal([]byte(`{"type":"heatmap","data":[]}`), &v)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVisualizationValidateMismatchedData(t *testing.T) {
	v := Visualization{Kind: VisualizationTimeline, Points: []GeoPoint{{ID: "p"}}}
	if err := v.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestVisualizationMarshalCarriesTag(t *testing.T) {
	v := Visualization{Kind: VisualizationNetwork}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"type":"network","data":{"nodes":[],"links":[]}}` {
		t.Errorf("unexpected encoding %s", b)
	}
}

func TestGraphDataValidate(t *testing.T) {
	nodes := []GraphNode{{ID: "a", Group: "person", Label: "A"}, {ID: "b", Group: "device", Label: "B"}}

	tests := []struct {
		name    string
		data    GraphData
		wantErr error
	}{
		{"valid", GraphData{Nodes: nodes, Links: []GraphLink{{Source: "a", Target: "b", Label: "called"}}}, nil},
		{"dangling target", GraphData{Nodes: nodes, Links: []GraphLink{{Source: "a", Target: "z"}}}, domain.ErrDanglingLink},
		{"dangling source", GraphData{Nodes: nodes, Links: []GraphLink{{Source: "z", Target: "a"}}}, domain.ErrDanglingLink},
		{"duplicate id", GraphData{Nodes: append(nodes, GraphNode{ID: "a"})}, domain.ErrValidation},
		{"empty id", GraphData{Nodes: []GraphNode{{ID: ""}}}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGraphDataEqualAndClone(t *testing.T) {
	g := GraphData{
		Nodes: []GraphNode{{ID: "a"}, {ID: "b"}},
		Links: []GraphLink{{Source: "a", Target: "b", EvidenceIDs: []string{"e1"}}},
	}
	c := g.Clone()
	if !g.Equal(&c) {
		t.Fatal("clone should be equal")
	}
	c.Links[0].EvidenceIDs[0] = "e2"
	if g.Links[0].EvidenceIDs[0] != "e1" {
		t.Fatal("clone shares evidence slice with original")
	}
	if g.Equal(&c) {
		t.Fatal("modified clone should differ")
	}
}

func TestSortByRecency(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	later := base.Add(2 * time.Hour)

	sessions := []Session{
		{ID: "old", CreatedAt: base},
		{ID: "active", CreatedAt: base, LastMessageAt: &later},
		{ID: "new", CreatedAt: base.Add(time.Hour)},
	}
	SortByRecency(sessions)

	want := []string{"active", "new", "old"}
	for i, id := range want {
		if sessions[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, sessions[i].ID, id)
		}
	}
}

func TestMessagePersistable(t *testing.T) {
	if (Message{Loading: true}).Persistable() {
		t.Error("loading placeholder must not persist")
	}
	if (Message{Synthetic: true}).Persistable() {
		t.Error("synthetic welcome must not persist")
	}
	if !(Message{Role: RoleUser, Content: "q"}).Persistable() {
		t.Error("plain message should persist")
	}
}

func TestDeriveSessionTitle(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     string
	}{
		{"short", "Who called Sam?", "Who called Sam?"},
		{"whitespace collapsed", "  who\n called   Sam? ", "who called Sam?"},
		{"exactly fifty", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"},
		{"long", "Show me every message between Alex and Sam sent after midnight on Friday", "Show me every message between Alex and Sam sent af..."},
		{"multibyte", "مرحبا مرحبا مرحبا مرحبا مرحبا مرحبا مرحبا مرحبا مرحبا مرحبا", "مرحبا مرحبا مرحبا مرحبا مرحبا مرحبا مرحبا مرحبا مر..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveSessionTitle(tt.question); got != tt.want {
				t.Errorf("DeriveSessionTitle(%q) = %q, want %q", tt.question, got, tt.want)
			}
		})
	}
}
