package assistant

// ActionKind identifies a follow-up action offered under an answer
type ActionKind string

const (
	ActionDownloadReport ActionKind = "download_report"
	ActionViewEvidence   ActionKind = "view_evidence"
	ActionViewTimeline   ActionKind = "view_timeline"
	ActionShowNetwork    ActionKind = "show_network"
)

// Action is a contextual follow-up offered under an assistant message
type Action struct {
	Kind        ActionKind `json:"kind"`
	Label       string     `json:"label"`
	EvidenceIDs []string   `json:"evidence_ids,omitempty"`
}

// NavigationTarget names the host view an action or full-view request opens.
type NavigationTarget string

const (
	TargetReport   NavigationTarget = "report"
	TargetEvidence NavigationTarget = "evidence"
	TargetTimeline NavigationTarget = "timeline"
	TargetNetwork  NavigationTarget = "network"
	TargetMap      NavigationTarget = "map"
	TargetChat     NavigationTarget = "chat"
)

// Target returns the view an action navigates to.
func (k ActionKind) Target() (NavigationTarget, bool) {
	switch k {
	case ActionDownloadReport:
		return TargetReport, true
	case ActionViewEvidence:
		return TargetEvidence, true
	case ActionViewTimeline:
		return TargetTimeline, true
	case ActionShowNetwork:
		return TargetNetwork, true
	}
	return "", false
}
