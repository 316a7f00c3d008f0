package assistant

// Conclusion is the verdict of a hypothesis test
type Conclusion string

const (
	ConclusionLikely       Conclusion = "likely"
	ConclusionUnlikely     Conclusion = "unlikely"
	ConclusionInconclusive Conclusion = "inconclusive"
)

// Valid reports whether c is one of the known verdicts.
func (c Conclusion) Valid() bool {
	switch c {
	case ConclusionLikely, ConclusionUnlikely, ConclusionInconclusive:
		return true
	}
	return false
}

// EvidenceCount summarises how much evidence a test considered
type EvidenceCount struct {
	Total         int `json:"total"`
	Supporting    int `json:"supporting"`
	Contradictory int `json:"contradictory"`
}

// HypothesisResult is produced once per hypothesis test and never mutated.
type HypothesisResult struct {
	Hypothesis            string        `json:"hypothesis"`
	Conclusion            Conclusion    `json:"conclusion"`
	Confidence            float64       `json:"confidence"`
	Analysis              string        `json:"analysis"`
	EvidenceCount         EvidenceCount `json:"evidence_count"`
	SupportingEvidence    []Evidence    `json:"supporting_evidence,omitempty"`
	ContradictoryEvidence []Evidence    `json:"contradictory_evidence,omitempty"`
}
