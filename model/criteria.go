package model

import "time"

// TemporalRange bounds a query to a publication window. Either side may be
// nil for an open interval.
type TemporalRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// SearchCriteria describes a query handed to the federated retrieval engine.
type SearchCriteria struct {
	Query         string            `json:"query"`
	Filters       map[string]string `json:"filters,omitempty"` // Exact-match field filters
	Domains       []string          `json:"domains,omitempty"` // Scoping tags
	TemporalRange *TemporalRange    `json:"temporal_range,omitempty"`
	MaxResults    int               `json:"max_results"`
	MinRelevance  float64           `json:"min_relevance"`
}

// DefaultSearchCriteria returns a criteria with sensible limits for query.
func DefaultSearchCriteria(query string) SearchCriteria {
	return SearchCriteria{
		Query:        query,
		MaxResults:   10,
		MinRelevance: 0.0,
	}
}

// RecordFilter narrows a record store listing. Nil fields are ignored.
type RecordFilter struct {
	Source       *string    `json:"source,omitempty"`
	DocumentType *string    `json:"document_type,omitempty"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}
