package assistant

// Mode selects which input surface is active
type Mode string

const (
	ModeQuery      Mode = "query"
	ModeHypothesis Mode = "hypothesis"
)
