package assistant

import (
	"fmt"

	"flowbot/internal/domain"
)

// GraphNode is an entity in a relationship graph
type GraphNode struct {
	ID    string `json:"id"`
	Group string `json:"group"`
	Label string `json:"label"`
}

// GraphLink is a typed relationship between two nodes, referenced by id
type GraphLink struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	Label       string   `json:"label"`
	EvidenceIDs []string `json:"evidence_ids,omitempty"`
}

// GraphData is the payload of a network visualization
type GraphData struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Validate rejects empty or duplicate node ids and links that do not
// resolve to a node. Dangling links are never dropped silently.
func (g *GraphData) Validate() error {
	seen := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if n.ID == "" {
			return fmt.Errorf("%w: node %d has empty id", domain.ErrValidation, i)
		}
		if _, dup := seen[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", domain.ErrValidation, n.ID)
		}
		seen[n.ID] = struct{}{}
	}

	for i, l := range g.Links {
		if _, ok := seen[l.Source]; !ok {
			return fmt.Errorf("%w: link %d source %q", domain.ErrDanglingLink, i, l.Source)
		}
		if _, ok := seen[l.Target]; !ok {
			return fmt.Errorf("%w: link %d target %q", domain.ErrDanglingLink, i, l.Target)
		}
	}
	return nil
}

// Equal reports value equality of two graphs, including order.
func (g *GraphData) Equal(other *GraphData) bool {
	if g == nil || other == nil {
		return g == other
	}
	if len(g.Nodes) != len(other.Nodes) || len(g.Links) != len(other.Links) {
		return false
	}
	for i := range g.Nodes {
		if g.Nodes[i] != other.Nodes[i] {
			return false
		}
	}
	for i := range g.Links {
		a, b := g.Links[i], other.Links[i]
		if a.Source != b.Source || a.Target != b.Target || a.Label != b.Label {
			return false
		}
		if len(a.EvidenceIDs) != len(b.EvidenceIDs) {
			return false
		}
		for j := range a.EvidenceIDs {
			if a.EvidenceIDs[j] != b.EvidenceIDs[j] {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy so callers cannot mutate engine-owned data.
func (g *GraphData) Clone() GraphData {
	out := GraphData{
		Nodes: append([]GraphNode(nil), g.Nodes...),
		Links: make([]GraphLink, len(g.Links)),
	}
	for i, l := range g.Links {
		l.EvidenceIDs = append([]string(nil), l.EvidenceIDs...)
		out.Links[i] = l
	}
	return out
}
