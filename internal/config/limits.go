package config

const (
	// MemoryWindowSize is how many query/summary exchanges are sent back to
	// the backend as short-term conversation history.
	MemoryWindowSize = 10

	// MinHypothesisLength and MaxHypothesisLength bound hypothesis text
	// (characters, after trimming). The backend rejects anything outside
	// the same range.
	MinHypothesisLength = 10
	MaxHypothesisLength = 500

	// EvidenceSliceLimit is how many evidence items are attached to an
	// assistant message.
	EvidenceSliceLimit = 3

	// AutocompleteMinLength is the input length at which suggestions start.
	AutocompleteMinLength = 10

	// MaxSuggestions caps the synthesized completion list.
	MaxSuggestions = 5

	// MaxSessionTitleLength fits the backend's VARCHAR(255) title column.
	MaxSessionTitleLength = 255

	// MaxPinTitleLength fits the report item title column.
	MaxPinTitleLength = 255

	// GraphLabelMaxChars is the longest node label drawn under a node.
	GraphLabelMaxChars = 20

	// GraphHitRadius is the pointer distance (px) within which a node is hit.
	GraphHitRadius = 12.0

	// InlineVisualizationHeight bounds embedded views inside the message list.
	InlineVisualizationHeight = 320
)
