package actions

import (
	"reflect"
	"testing"

	models "flowbot/internal/domain/models/assistant"
)

func kinds(actions []models.Action) []models.ActionKind {
	out := []models.ActionKind{}
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}

func TestDerive(t *testing.T) {
	evidence := []models.Evidence{{ID: "ev-1"}, {ID: "ev-2"}}

	tests := []struct {
		name     string
		query    string
		evidence []models.Evidence
		want     []models.ActionKind
	}{
		{
			name:  "no evidence and no lexicon",
			query: "what happened",
			want:  []models.ActionKind{},
		},
		{
			name:     "evidence only",
			query:    "show messages",
			evidence: evidence,
			want:     []models.ActionKind{models.ActionDownloadReport, models.ActionViewEvidence},
		},
		{
			name:  "temporal without evidence",
			query: "WHEN did they meet",
			want:  []models.ActionKind{models.ActionViewTimeline},
		},
		{
			name:  "chronological matches temporal",
			query: "list chronologically",
			want:  []models.ActionKind{models.ActionViewTimeline},
		},
		{
			name:     "show network graph",
			query:    "show network graph",
			evidence: evidence,
			want:     []models.ActionKind{models.ActionDownloadReport, models.ActionViewEvidence, models.ActionShowNetwork},
		},
		{
			name:     "all four in fixed order",
			query:    "at what time were they connected",
			evidence: evidence,
			want: []models.ActionKind{
				models.ActionDownloadReport,
				models.ActionViewEvidence,
				models.ActionViewTimeline,
				models.ActionShowNetwork,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(Derive(tt.query, tt.evidence))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Derive() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveIsDeterministic(t *testing.T) {
	evidence := []models.Evidence{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	query := "relationship between suspects over time"

	first := Derive(query, evidence)
	for i := 0; i < 20; i++ {
		if again := Derive(query, evidence); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, first, again)
		}
	}
}

func TestDeriveCarriesEvidenceIDs(t *testing.T) {
	actions := Derive("anything", []models.Evidence{{ID: "x"}, {ID: "y"}})
	if len(actions) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(actions))
	}
	for _, a := range actions {
		if !reflect.DeepEqual(a.EvidenceIDs, []string{"x", "y"}) {
			t.Errorf("%s evidence ids = %v", a.Kind, a.EvidenceIDs)
		}
	}
}

func TestCustomRules(t *testing.T) {
	d := NewDispatcher([]Rule{{
		Name:  "always",
		Match: func(string, []models.Evidence) bool { return true },
		Build: func([]models.Evidence) []models.Action {
			return []models.Action{{Kind: models.ActionShowNetwork}}
		},
	}})
	if got := kinds(d.Derive("", nil)); !reflect.DeepEqual(got, []models.ActionKind{models.ActionShowNetwork}) {
		t.Errorf("custom rules not applied: %v", got)
	}
}
