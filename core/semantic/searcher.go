package semantic

import (
	"context"
	"time"

	"github.com/regraph/regraph/model"
)

// SearchDB is the embedding store operation the search branch needs
type SearchDB interface {
	SearchBySimilarity(embedding []float32, filters model.Properties, limit int) ([]*model.SemanticHit, error)
}

// Searcher is the semantic branch of the federated retrieval engine: a cosine
// similarity search over stored document embeddings.
type Searcher struct {
	db    SearchDB
	embed EmbedFunc
}

// NewSearcher creates a semantic search branch over the given embedding store.
func NewSearcher(db SearchDB, embed EmbedFunc) *Searcher {
	return &Searcher{db: db, embed: embed}
}

// Search embeds the query and runs a similarity lookup, requesting twice the
// requested result count so the merge step has room for dedup loss. Hits map
// to retrieval results with source "semantic".
func (s *Searcher) Search(ctx context.Context, criteria model.SearchCriteria) ([]*model.RetrievalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embedding, err := s.embed(criteria.Query)
	if err != nil {
		return nil, err
	}

	filters := model.Properties{}
	for key, value := range criteria.Filters {
		filters[key] = value
	}

	hits, err := s.db.SearchBySimilarity(embedding, filters, 2*criteria.MaxResults)
	if err != nil {
		return nil, err
	}

	results := make([]*model.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		if !inTemporalRange(hit.Metadata.String("publication_date"), criteria.TemporalRange) {
			continue
		}

		results = append(results, &model.RetrievalResult{
			ID:             hit.DocumentID,
			Content:        hit.Content,
			Source:         model.ResultSourceSemantic,
			RelevanceScore: hit.Similarity,
			Metadata:       hit.Metadata,
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
