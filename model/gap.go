package model

import "time"

// GapType classifies a deficiency found in a retrieved result set
type GapType string

const (
	GapTypeMissing      GapType = "missing"
	GapTypeInconsistent GapType = "inconsistent"
	GapTypeIncomplete   GapType = "incomplete"
)

// Gap represents a single detected deficiency in retrieved information.
// Severity and Confidence are on a 0-1 scale.
type Gap struct {
	Type                GapType   `json:"gap_type"`
	Description         string    `json:"description"`
	Severity            float64   `json:"severity"`
	AffectedDocuments   []string  `json:"affected_documents,omitempty"`
	SuggestedResolution string    `json:"suggested_resolution,omitempty"`
	Confidence          float64   `json:"confidence_score"`
	Timestamp           time.Time `json:"timestamp"`
}

// GapReport is the outcome of scoring a result set against required aspects.
// Completeness and Consistency are clamped to [0,1].
type GapReport struct {
	Gaps            []Gap              `json:"gaps"`
	Completeness    float64            `json:"completeness_score"`
	Consistency     float64            `json:"consistency_score"`
	CoverageMetrics map[string]float64 `json:"coverage_metrics"`
	Timestamp       time.Time          `json:"timestamp"`
}
