package assistant

// Evidence is an item returned by the query service.
type Evidence struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Source     string                 `json:"source"`
	Device     string                 `json:"device"`
	Timestamp  string                 `json:"timestamp"`
	Content    string                 `json:"content"`
	SHA256     string                 `json:"sha256,omitempty"`
	Confidence float64                `json:"confidence"`
	Entities   []Entity               `json:"entities,omitempty"`
	Location   *Location              `json:"location,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Entity is a typed value extracted from evidence
type Entity struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Location is a WGS84 coordinate
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// EvidenceIDs returns the ids of items in order.
func EvidenceIDs(items []Evidence) []string {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, e := range items {
		ids = append(ids, e.ID)
	}
	return ids
}
