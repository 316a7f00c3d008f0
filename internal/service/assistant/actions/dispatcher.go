// Package actions derives the follow-up actions offered under an answer.
package actions

import (
	"regexp"

	models "flowbot/internal/domain/models/assistant"
)

var (
	temporalPattern   = regexp.MustCompile(`(?i)time|when|date|chronolog`)
	relationalPattern = regexp.MustCompile(`(?i)connect|link|relationship|network|between`)
)

// Rule offers actions when its predicate holds. Rules are evaluated in
// order and every matching rule contributes; the order of the rule list
// is the order of the resulting actions.
type Rule struct {
	Name  string
	Match func(query string, evidence []models.Evidence) bool
	Build func(evidence []models.Evidence) []models.Action
}

// DefaultRules is the fixed rule list: download, evidence, timeline, network.
var DefaultRules = []Rule{
	{
		Name:  "download",
		Match: hasEvidence,
		Build: func(evidence []models.Evidence) []models.Action {
			return []models.Action{{
				Kind:        models.ActionDownloadReport,
				Label:       "Download report",
				EvidenceIDs: models.EvidenceIDs(evidence),
			}}
		},
	},
	{
		Name:  "evidence",
		Match: hasEvidence,
		Build: func(evidence []models.Evidence) []models.Action {
			return []models.Action{{
				Kind:        models.ActionViewEvidence,
				Label:       "View all evidence",
				EvidenceIDs: models.EvidenceIDs(evidence),
			}}
		},
	},
	{
		Name: "timeline",
		Match: func(query string, _ []models.Evidence) bool {
			return temporalPattern.MatchString(query)
		},
		Build: func([]models.Evidence) []models.Action {
			return []models.Action{{Kind: models.ActionViewTimeline, Label: "View in timeline"}}
		},
	},
	{
		Name: "network",
		Match: func(query string, _ []models.Evidence) bool {
			return relationalPattern.MatchString(query)
		},
		Build: func([]models.Evidence) []models.Action {
			return []models.Action{{Kind: models.ActionShowNetwork, Label: "Show network graph"}}
		},
	},
}

// Dispatcher applies a rule list
type Dispatcher struct {
	rules []Rule
}

// NewDispatcher creates a dispatcher over the given rules (DefaultRules if nil)
func NewDispatcher(rules []Rule) *Dispatcher {
	if rules == nil {
		rules = DefaultRules
	}
	return &Dispatcher{rules: rules}
}

// Derive is a pure function of query and evidence.
func (d *Dispatcher) Derive(query string, evidence []models.Evidence) []models.Action {
	var out []models.Action
	for _, r := range d.rules {
		if r.Match(query, evidence) {
			out = append(out, r.Build(evidence)...)
		}
	}
	return out
}

// Derive runs the default rules.
func Derive(query string, evidence []models.Evidence) []models.Action {
	return NewDispatcher(nil).Derive(query, evidence)
}

func hasEvidence(_ string, evidence []models.Evidence) bool {
	return len(evidence) > 0
}
