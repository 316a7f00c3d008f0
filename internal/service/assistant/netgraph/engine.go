package netgraph

import (
	"fmt"
	"io"
	"math"
	"sync"

	"flowbot/internal/config"
	"flowbot/internal/domain"
	models "flowbot/internal/domain/models/assistant"
	"flowbot/internal/palette"
)

// Node radii in pixels
const (
	NodeRadius         = 8.0
	NodeRadiusHovered  = 10.0
	NodeRadiusSelected = 12.0
	RingWidth          = 2.0
	LinkWidth          = 1.5
	LinkWidthActive    = 2.5
)

// Direction of a link relative to the selected node
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
)

// IncidentLink is a link touching the selected node
type IncidentLink struct {
	Direction   Direction `json:"direction"`
	OtherID     string    `json:"other_id"`
	OtherLabel  string    `json:"other_label"`
	Label       string    `json:"label"`
	EvidenceIDs []string  `json:"evidence_ids,omitempty"`
}

// Selection describes the selected node
type Selection struct {
	Node  models.GraphNode `json:"node"`
	Links []IncidentLink   `json:"links"`
}

// NodePosition is a laid-out node
type NodePosition struct {
	models.GraphNode
	Point
	Color string `json:"color"`
}

// Snapshot is the engine state a host needs to paint or inspect the graph
type Snapshot struct {
	Bounds     Bounds               `json:"bounds"`
	Fullscreen bool                 `json:"fullscreen"`
	Nodes      []NodePosition       `json:"nodes"`
	Links      []models.GraphLink   `json:"links"`
	Hovered    string               `json:"hovered,omitempty"`
	Selection  *Selection           `json:"selection,omitempty"`
	Legend     []palette.GroupColor `json:"legend"`
}

// Engine owns node positions and pointer state for one rendered graph.
// Inline and full-screen views share one engine; positions are recomputed
// only when the graph data or the surface dimensions change.
type Engine struct {
	mu      sync.Mutex
	palette *palette.Registry

	data      models.GraphData
	bounds    Bounds
	positions []Point
	layouts   int

	fullscreen bool
	hovered    int
	selected   int
}

// NewEngine validates data and computes the initial layout.
func NewEngine(data models.GraphData, bounds Bounds, colors *palette.Registry) (*Engine, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if colors == nil {
		colors = palette.MustDefault()
	}
	e := &Engine{
		palette:  colors,
		data:     data.Clone(),
		bounds:   bounds,
		hovered:  -1,
		selected: -1,
	}
	e.relayout()
	return e, nil
}

// SetData replaces the graph. Identical data is a no-op; new data clears
// hover and selection and recomputes positions.
func (e *Engine) SetData(data models.GraphData) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.data.Equal(&data) {
		return nil
	}
	if err := data.Validate(); err != nil {
		return err
	}
	e.data = data.Clone()
	e.hovered, e.selected = -1, -1
	e.relayout()
	return nil
}

// Resize changes the surface size; it reports whether a new layout was computed.
func (e *Engine) Resize(b Bounds) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resize(b)
}

// SetFullscreen switches render mode. Positions are kept unless the
// dimensions of the new surface differ.
func (e *Engine) SetFullscreen(on bool, b Bounds) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fullscreen = on
	return e.resize(b)
}

// LayoutCount returns how many times positions were computed.
func (e *Engine) LayoutCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layouts
}

// Positions returns node positions in node order.
func (e *Engine) Positions() []NodePosition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nodePositions()
}

// PointerMove updates the hovered node and returns its id ("" for none).
func (e *Engine) PointerMove(x, y float64) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hovered = e.hitTest(Point{x, y})
	if e.hovered < 0 {
		return ""
	}
	return e.data.Nodes[e.hovered].ID
}

// Click selects the nearest node within the hit radius, or clears the
// selection when the click is farther than that from every node.
func (e *Engine) Click(x, y float64) *Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = e.hitTest(Point{x, y})
	return e.selection()
}

// Select selects a node by id.
func (e *Engine) Select(id string) (*Selection, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, n := range e.data.Nodes {
		if n.ID == id {
			e.selected = i
			return e.selection(), nil
		}
	}
	return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
}

// ClearSelection drops the selection
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selected = -1
}

// Selection returns the selected node and its incident links, or nil.
func (e *Engine) Selection() *Selection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection()
}

// Snapshot returns the current paintable state
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		Bounds:     e.bounds,
		Fullscreen: e.fullscreen,
		Nodes:      e.nodePositions(),
		Links:      e.data.Clone().Links,
		Selection:  e.selection(),
		Legend:     e.palette.Legend(),
	}
	if e.hovered >= 0 {
		s.Hovered = e.data.Nodes[e.hovered].ID
	}
	return s
}

// Render draws links first, then nodes with their rings and labels.
func (e *Engine) Render(c Canvas) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.render(c)
}

// render expects e.mu held
func (e *Engine) render(c Canvas) {
	surface := e.palette.Surface()
	c.Clear(surface.Background)

	index := e.index()
	for _, l := range e.data.Links {
		si, ti := index[l.Source], index[l.Target]
		color, width := surface.Link, LinkWidth
		if e.selected >= 0 && (si == e.selected || ti == e.selected) {
			color, width = surface.LinkActive, LinkWidthActive
		}
		a, b := e.positions[si], e.positions[ti]
		c.Line(a.X, a.Y, b.X, b.Y, color, width)
	}

	for i, n := range e.data.Nodes {
		p := e.positions[i]
		r := e.radius(i)
		c.Circle(p.X, p.Y, r, e.palette.Color(n.Group))
		if i == e.hovered || i == e.selected {
			c.Ring(p.X, p.Y, r, surface.Ring, RingWidth)
		}
		c.Text(TruncateLabel(n.Label, config.GraphLabelMaxChars), p.X, p.Y+r+4, surface.Label)
	}
}

// ExportPNG encodes the current drawing surface as PNG.
func (e *Engine) ExportPNG(w io.Writer) error {
	e.mu.Lock()
	width, height := int(math.Ceil(e.bounds.Width)), int(math.Ceil(e.bounds.Height))
	if width <= 0 || height <= 0 {
		e.mu.Unlock()
		return fmt.Errorf("%w: empty drawing surface %dx%d", domain.ErrValidation, width, height)
	}
	// Size and layout come from the same state.
	canvas := NewBitmapCanvas(width, height)
	e.render(canvas)
	e.mu.Unlock()

	if err := canvas.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// ExportPDF is not implemented; it never reports success.
func (e *Engine) ExportPDF(io.Writer) error {
	return fmt.Errorf("pdf: %w", domain.ErrExportUnsupported)
}

// TruncateLabel shortens s to at most limit characters, marking the cut
// with an ellipsis.
func TruncateLabel(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 3 {
		return string(r[:limit])
	}
	return string(r[:limit-3]) + "..."
}

func (e *Engine) resize(b Bounds) bool {
	if b == e.bounds {
		return false
	}
	e.bounds = b
	e.relayout()
	return true
}

func (e *Engine) relayout() {
	e.positions = Layout(e.data.Nodes, e.bounds)
	e.layouts++
}

func (e *Engine) radius(i int) float64 {
	switch {
	case i == e.selected:
		return NodeRadiusSelected
	case i == e.hovered:
		return NodeRadiusHovered
	default:
		return NodeRadius
	}
}

// hitTest returns the index of the nearest node within the hit radius, or -1.
func (e *Engine) hitTest(p Point) int {
	best, bestDist := -1, math.Inf(1)
	for i, pos := range e.positions {
		d := distance(p, pos)
		if d <= config.GraphHitRadius && d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func (e *Engine) index() map[string]int {
	idx := make(map[string]int, len(e.data.Nodes))
	for i, n := range e.data.Nodes {
		idx[n.ID] = i
	}
	return idx
}

func (e *Engine) selection() *Selection {
	if e.selected < 0 {
		return nil
	}
	node := e.data.Nodes[e.selected]
	byID := make(map[string]models.GraphNode, len(e.data.Nodes))
	for _, n := range e.data.Nodes {
		byID[n.ID] = n
	}

	sel := &Selection{Node: node, Links: []IncidentLink{}}
	for _, l := range e.data.Links {
		var dir Direction
		var other string
		switch node.ID {
		case l.Source:
			dir, other = Outgoing, l.Target
		case l.Target:
			dir, other = Incoming, l.Source
		default:
			continue
		}
		sel.Links = append(sel.Links, IncidentLink{
			Direction:   dir,
			OtherID:     other,
			OtherLabel:  byID[other].Label,
			Label:       l.Label,
			EvidenceIDs: append([]string(nil), l.EvidenceIDs...),
		})
	}
	return sel
}

func (e *Engine) nodePositions() []NodePosition {
	out := make([]NodePosition, len(e.data.Nodes))
	for i, n := range e.data.Nodes {
		out[i] = NodePosition{GraphNode: n, Point: e.positions[i], Color: e.palette.Color(n.Group)}
	}
	return out
}
