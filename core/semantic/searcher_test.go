package semantic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/regraph/regraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearchDB struct {
	hits    []*model.SemanticHit
	err     error
	filters model.Properties
	limit   int
}

func (f *fakeSearchDB) SearchBySimilarity(embedding []float32, filters model.Properties, limit int) ([]*model.SemanticHit, error) {
	f.filters = filters
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func constantEmbedder(embedding []float32, err error) EmbedFunc {
	return func(text string) ([]float32, error) {
		return embedding, err
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("Maps hits to semantic results", func(t *testing.T) {
		db := &fakeSearchDB{hits: []*model.SemanticHit{{
			DocumentID: "doc-1",
			Content:    "Cybersecurity requirements",
			Metadata:   model.Properties{"publication_date": "2024-03-15"},
			Similarity: 0.91,
		}}}
		searcher := NewSearcher(db, constantEmbedder([]float32{0.1, 0.2}, nil))

		criteria := model.DefaultSearchCriteria("cybersecurity")
		results, err := searcher.Search(ctx, criteria)
		require.NoError(t, err)

		require.Len(t, results, 1)
		assert.Equal(t, "doc-1", results[0].ID)
		assert.Equal(t, model.ResultSourceSemantic, results[0].Source)
		assert.Equal(t, 0.91, results[0].RelevanceScore)
	})

	t.Run("Requests twice the max results for dedup headroom", func(t *testing.T) {
		db := &fakeSearchDB{}
		searcher := NewSearcher(db, constantEmbedder([]float32{0.1}, nil))

		criteria := model.DefaultSearchCriteria("query")
		criteria.MaxResults = 7
		criteria.Filters = map[string]string{"source": "federal_register"}

		_, err := searcher.Search(ctx, criteria)
		require.NoError(t, err)

		assert.Equal(t, 14, db.limit)
		assert.Equal(t, model.Properties{"source": "federal_register"}, db.filters)
	})

	t.Run("Temporal range drops out-of-window hits", func(t *testing.T) {
		db := &fakeSearchDB{hits: []*model.SemanticHit{
			{DocumentID: "old", Metadata: model.Properties{"publication_date": "2020-01-01"}, Similarity: 0.9},
			{DocumentID: "recent", Metadata: model.Properties{"publication_date": "2024-03-15"}, Similarity: 0.8},
			{DocumentID: "undated", Similarity: 0.7},
		}}
		searcher := NewSearcher(db, constantEmbedder([]float32{0.1}, nil))

		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		criteria := model.DefaultSearchCriteria("query")
		criteria.TemporalRange = &model.TemporalRange{Start: &start}

		results, err := searcher.Search(ctx, criteria)
		require.NoError(t, err)

		require.Len(t, results, 2)
		assert.Equal(t, "recent", results[0].ID)
		assert.Equal(t, "undated", results[1].ID, "hits without a date are kept")
	})

	t.Run("Embedding failure fails the branch", func(t *testing.T) {
		searcher := NewSearcher(&fakeSearchDB{}, constantEmbedder(nil, errors.New("model not loaded")))

		_, err := searcher.Search(ctx, model.DefaultSearchCriteria("query"))
		assert.Error(t, err)
	})

	t.Run("Cancelled context fails before embedding", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		searcher := NewSearcher(&fakeSearchDB{}, constantEmbedder([]float32{0.1}, nil))
		_, err := searcher.Search(cancelled, model.DefaultSearchCriteria("query"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
