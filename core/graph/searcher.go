package graph

import (
	"context"
	"time"

	"github.com/regraph/regraph/model"
)

// SearchDB is the graph store operation the search branch needs
type SearchDB interface {
	SearchDocumentNodes(query string, filters model.Properties, limit int) ([]*model.GraphSearchHit, error)
}

// Searcher is the graph branch of the federated retrieval engine: a ranked
// full-text search over document node titles and abstracts.
type Searcher struct {
	db SearchDB
}

// NewSearcher creates a graph search branch over the given graph store.
func NewSearcher(db SearchDB) *Searcher {
	return &Searcher{db: db}
}

// Search runs the full-text query and maps the hits into retrieval results
// with source "graph". Exact-match filters are pushed down to the store; the
// temporal range is applied against the node's publication date.
func (s *Searcher) Search(ctx context.Context, criteria model.SearchCriteria) ([]*model.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filters := model.Properties{}
	for key, value := range criteria.Filters {
		filters[key] = value
	}

	hits, err := s.db.SearchDocumentNodes(criteria.Query, filters, criteria.MaxResults)
	if err != nil {
		return nil, err
	}

	results := make([]*model.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		if !inTemporalRange(hit.Node.Properties.String("publication_date"), criteria.TemporalRange) {
			continue
		}

		content := hit.Node.Properties.String("title")
		if abstract := hit.Node.Properties.String("abstract"); abstract != "" {
			content += "\n\n" + abstract
		}

		results = append(results, &model.RetrievalResult{
			ID:             hit.Node.NaturalKey,
			Content:        content,
			Source:         model.ResultSourceGraph,
			RelevanceScore: hit.Score,
			Metadata:       hit.Node.Properties,
			Timestamp:      time.Now().UTC(),
		})
	}

	return results, nil
}

// inTemporalRange checks a "2006-01-02" publication date against the range.
// Dates that fail to parse are kept rather than silently dropped.
func inTemporalRange(publicationDate string, temporalRange *model.TemporalRange) bool {
	if temporalRange == nil || publicationDate == "" {
		return true
	}

	date, err := time.Parse("2006-01-02", publicationDate)
	if err != nil {
		return true
	}

	if temporalRange.Start != nil && date.Before(*temporalRange.Start) {
		return false
	}
	if temporalRange.End != nil && date.After(*temporalRange.End) {
		return false
	}
	return true
}
