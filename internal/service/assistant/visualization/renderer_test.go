package visualization

import (
	"errors"
	"math"
	"testing"

	"flowbot/internal/domain"
	models "flowbot/internal/domain/models/assistant"
	"flowbot/internal/service/assistant/netgraph"
)

func TestGroupTimeline(t *testing.T) {
	events := []models.TimelineEvent{
		{ID: "c", Timestamp: "2024-01-16T09:00:00Z"},
		{ID: "bad", Timestamp: "yesterday"},
		{ID: "b", Timestamp: "2024-01-15T23:30:00Z"},
		{ID: "a", Timestamp: "2024-01-15T08:00:00Z"},
		// 2024-01-15T22:00Z is already the 16th in Dubai
		{ID: "d", Timestamp: "2024-01-16T02:00:00+04:00"},
	}

	days := GroupTimeline(events)

	want := []struct {
		day string
		ids []string
	}{
		{"2024-01-15", []string{"a", "b"}},
		{"2024-01-16", []string{"d", "c"}},
		{UnknownDay, []string{"bad"}},
	}
	if len(days) != len(want) {
		t.Fatalf("got %d days: %+v", len(days), days)
	}
	for i, w := range want {
		if days[i].Day != w.day {
			t.Errorf("day %d = %s, want %s", i, days[i].Day, w.day)
		}
		if len(days[i].Events) != len(w.ids) {
			t.Fatalf("day %s events = %+v", w.day, days[i].Events)
		}
		for j, id := range w.ids {
			if days[i].Events[j].ID != id {
				t.Errorf("day %s event %d = %s, want %s", w.day, j, days[i].Events[j].ID, id)
			}
		}
	}
}

func TestGroupChatAlignment(t *testing.T) {
	lines := []models.ChatLine{
		{ID: "1", Sender: "Alex", Timestamp: "2024-01-15T10:00:00Z", Direction: "sent"},
		{ID: "2", Sender: "Sam", Timestamp: "2024-01-15T10:01:00Z", Direction: "received"},
		{ID: "3", Sender: "Sam", Timestamp: "2024-01-16T08:00:00Z", Direction: ""},
	}

	days := GroupChat(lines)
	if len(days) != 2 {
		t.Fatalf("days = %+v", days)
	}
	if days[0].Bubbles[0].Align != "right" || days[0].Bubbles[1].Align != "left" {
		t.Errorf("unexpected alignment %+v", days[0].Bubbles)
	}
	if days[1].Bubbles[0].Align != "left" {
		t.Errorf("unknown direction should align left")
	}
}

func TestBuildMap(t *testing.T) {
	points := []models.GeoPoint{
		{ID: "late", Lat: 25.0, Lon: 55.0, Timestamp: "2024-01-15T12:00:00Z"},
		{ID: "untimed", Lat: 26.0, Lon: 56.0},
		{ID: "early", Lat: 24.0, Lon: 54.0, Timestamp: "2024-01-15T08:00:00Z"},
	}

	view := BuildMap(points)

	b := view.Bounds
	if b == nil {
		t.Fatal("expected bounds")
	}
	checks := []struct {
		name      string
		got, want float64
	}{
		{"min lat", b.MinLat, 24.0 - 0.2},
		{"max lat", b.MaxLat, 26.0 + 0.2},
		{"min lon", b.MinLon, 54.0 - 0.2},
		{"max lon", b.MaxLon, 56.0 + 0.2},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 1e-9 {
			t.Errorf("%s = %f, want %f", c.name, c.got, c.want)
		}
	}

	wantPath := []string{"early", "late", "untimed"}
	for i, id := range wantPath {
		if view.Path[i].ID != id {
			t.Errorf("path[%d] = %s, want %s", i, view.Path[i].ID, id)
		}
	}
}

func TestBuildMapSinglePoint(t *testing.T) {
	view := BuildMap([]models.GeoPoint{{ID: "p", Lat: 10, Lon: 20}})
	if math.Abs(view.Bounds.MaxLat-view.Bounds.MinLat-2*PaddingFactor*MinGeoSpan) > 1e-12 {
		t.Errorf("single point should use the minimum span: %+v", view.Bounds)
	}
}

func TestBuildMapEmpty(t *testing.T) {
	view := BuildMap(nil)
	if view.Bounds != nil || len(view.Path) != 0 {
		t.Errorf("empty map should have no bounds or path: %+v", view)
	}
}

func networkPayload() *models.Visualization {
	return &models.Visualization{
		Kind: models.VisualizationNetwork,
		Graph: &models.GraphData{
			Nodes: []models.GraphNode{{ID: "a", Group: "person", Label: "A"}, {ID: "b", Group: "phone", Label: "B"}},
			Links: []models.GraphLink{{Source: "a", Target: "b", Label: "owns"}},
		},
	}
}

func TestMountDispatchesOnKind(t *testing.T) {
	r := NewRenderer(nil, nil)

	tests := []struct {
		name    string
		payload *models.Visualization
		check   func(t *testing.T, v *View)
	}{
		{
			name:    "timeline",
			payload: &models.Visualization{Kind: models.VisualizationTimeline, Timeline: []models.TimelineEvent{{ID: "e", Timestamp: "2024-01-01T00:00:00Z"}}},
			check: func(t *testing.T, v *View) {
				if len(v.Timeline) != 1 || v.Map != nil || v.Graph != nil {
					t.Errorf("unexpected view %+v", v)
				}
			},
		},
		{
			name:    "map",
			payload: &models.Visualization{Kind: models.VisualizationMap, Points: []models.GeoPoint{{ID: "p"}}},
			check: func(t *testing.T, v *View) {
				if v.Map == nil || v.Timeline != nil {
					t.Errorf("unexpected view %+v", v)
				}
			},
		},
		{
			name:    "chat",
			payload: &models.Visualization{Kind: models.VisualizationChatBubbles, Chat: []models.ChatLine{{ID: "c"}}},
			check: func(t *testing.T, v *View) {
				if len(v.Chat) != 1 {
					t.Errorf("unexpected view %+v", v)
				}
			},
		},
		{
			name:    "network",
			payload: networkPayload(),
			check: func(t *testing.T, v *View) {
				if v.Graph == nil {
					t.Fatal("network view should mount a graph engine")
				}
				snap := v.GraphSnapshot()
				if len(snap.Nodes) != 2 || snap.Bounds != DefaultGraphBounds {
					t.Errorf("unexpected snapshot %+v", snap)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := r.Mount("case-1", "msg-"+tt.name, tt.payload)
			if err != nil {
				t.Fatalf("Mount: %v", err)
			}
			if v.Kind != tt.payload.Kind || v.InlineHeight != 320 {
				t.Errorf("kind=%s inline=%d", v.Kind, v.InlineHeight)
			}
			tt.check(t, v)
		})
	}
}

func TestMountCachesPerMessage(t *testing.T) {
	r := NewRenderer(nil, nil)
	first, err := r.Mount("case-1", "m1", networkPayload())
	if err != nil {
		t.Fatal(err)
	}
	first.Graph.Resize(netgraph.Bounds{Width: 1000, Height: 800})

	second, err := r.Mount("case-1", "m1", networkPayload())
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Fatal("remount should return the cached view")
	}
	if second.Graph.LayoutCount() != 2 {
		t.Errorf("same data should not relayout, layouts = %d", second.Graph.LayoutCount())
	}
}

func TestMountRejectsDanglingLinks(t *testing.T) {
	r := NewRenderer(nil, nil)
	p := networkPayload()
	p.Graph.Links = append(p.Graph.Links, models.GraphLink{Source: "a", Target: "missing"})

	if _, err := r.Mount("case-1", "m1", p); !errors.Is(err, domain.ErrDanglingLink) {
		t.Fatalf("expected dangling link error, got %v", err)
	}
	if _, err := r.View("m1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("failed mount must not be cached")
	}
}

func TestFullViewEmitsNavigateRequest(t *testing.T) {
	r := NewRenderer(nil, nil)
	if _, err := r.Mount("case-9", "m1", &models.Visualization{Kind: models.VisualizationMap, Points: []models.GeoPoint{}}); err != nil {
		t.Fatal(err)
	}

	req, err := r.FullView("m1")
	if err != nil {
		t.Fatal(err)
	}
	if req.Target != models.TargetMap || req.CaseID != "case-9" || req.MessageID != "m1" {
		t.Errorf("unexpected request %+v", req)
	}

	if _, err := r.FullView("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestGraphRequiresNetworkView(t *testing.T) {
	r := NewRenderer(nil, nil)
	if _, err := r.Mount("c", "m1", &models.Visualization{Kind: models.VisualizationTimeline, Timeline: []models.TimelineEvent{}}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Graph("m1"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	r.Reset()
	if _, err := r.View("m1"); !errors.Is(err, domain.ErrNotFound) {
		t.Error("reset should drop mounted views")
	}
}
