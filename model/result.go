package model

import "time"

// ResultSource identifies which backend produced a retrieval result
type ResultSource string

const (
	ResultSourceGraph    ResultSource = "graph"
	ResultSourceSemantic ResultSource = "semantic"
	ResultSourceCombined ResultSource = "combined"
)

// RetrievalResult represents a document retrieved by a federated query.
// RelevanceScore has no fixed upper bound; callers normalize if they need to.
type RetrievalResult struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Source         ResultSource   `json:"source"`
	RelevanceScore float64        `json:"relevance_score"`
	Metadata       Properties     `json:"metadata,omitempty"`
	Relationships  []Relationship `json:"relationships"` // Populated by enrichment
	Timestamp      time.Time      `json:"timestamp"`
}

// RetrievalDiagnostics reports which parts of a federated retrieval degraded.
// A degraded branch is never surfaced as an error: the engine returns whatever
// the healthy branch found, and callers use these flags to distinguish "no
// results exist" from "a backend was down".
type RetrievalDiagnostics struct {
	GraphDegraded      bool `json:"graph_degraded"`
	SemanticDegraded   bool `json:"semantic_degraded"`
	EnrichmentDegraded bool `json:"enrichment_degraded"`
}

// Degraded reports whether any part of the retrieval fell back.
func (d RetrievalDiagnostics) Degraded() bool {
	return d.GraphDegraded || d.SemanticDegraded || d.EnrichmentDegraded
}
