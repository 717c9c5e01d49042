package regraph

import (
	"context"
	"testing"
	"time"

	"github.com/regraph/regraph/core/gap"
	"github.com/regraph/regraph/core/semantic"
	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEmbedder creates a simple deterministic embedder for testing
func testEmbedder(dimension int) semantic.EmbedFunc {
	return func(text string) ([]float32, error) {
		embedding := make([]float32, dimension)
		for i := 0; i < dimension; i++ {
			embedding[i] = float32((len(text)+i)%100) / 100.0
		}
		return embedding, nil
	}
}

func initRegraph(t *testing.T) *Regraph {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err, "failed to create database configuration")

	r, err := New(dbConfig, 384)
	require.NoError(t, err, "failed to create regraph")
	require.NotNil(t, r, "expected regraph to be non-nil")

	r.SetEmbedder(testEmbedder(384))

	t.Cleanup(func() {
		r.Close()
	})

	return r
}

func farPart(id, title, agency, regulationID string) *model.DocumentRecord {
	return &model.DocumentRecord{
		DocumentID:      id,
		Source:          "federal_register",
		Title:           title,
		DocumentType:    "rule",
		PublicationDate: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Metadata: model.DocumentMetadata{
			HTMLURL:       "https://example.gov/" + id,
			Abstract:      "Acquisition policy for federal agencies.",
			Agencies:      []model.AgencyRef{{Name: agency}},
			RegulationIDs: []string{regulationID},
		},
	}
}

func TestNew(t *testing.T) {
	helper.SetTestDatabaseConfigEnvs(t, dbPort)
	dbConfig, err := helper.NewDatabaseConfiguration()
	require.NoError(t, err)

	t.Run("Valid call New", func(t *testing.T) {
		r, err := New(dbConfig, 384)
		require.NoError(t, err, "Expected New to not return an error")
		require.NotNil(t, r, "Expected New to return a non-nil instance")
		assert.NotNil(t, r.DB)
		assert.NotNil(t, r.Records)
		assert.NotNil(t, r.Graph)
		assert.NotNil(t, r.Embeddings)
		assert.NotNil(t, r.Sync)
		assert.NotNil(t, r.Gaps)
		assert.Nil(t, r.Engine, "Expected engine to be nil before SetEmbedder")

		err = r.Close()
		assert.NoError(t, err, "Expected Close to not return an error")
	})

	t.Run("Regraph with nil database handles Close gracefully", func(t *testing.T) {
		r := &Regraph{}

		err := r.Close()
		assert.NoError(t, err, "Expected Close to handle nil DB gracefully")
	})

	t.Run("Retrieve without an embedder fails", func(t *testing.T) {
		r := &Regraph{}

		_, _, err := r.Retrieve(context.Background(), model.DefaultSearchCriteria("query"))
		assert.Error(t, err)
	})
}

func TestStoreDocument(t *testing.T) {
	ctx := context.Background()
	r := initRegraph(t)

	t.Run("Store projects relationships and indexes the document", func(t *testing.T) {
		record := farPart("FAR-PART-1", "Federal Acquisition Regulation Part 1", "GSA", "1234-AB56")

		err := r.StoreDocument(ctx, record)
		require.NoError(t, err)

		stored, err := r.GetDocument("FAR-PART-1")
		require.NoError(t, err)
		assert.Equal(t, "Federal Acquisition Regulation Part 1", stored.Title)
		assert.False(t, stored.CreatedAt.IsZero())

		relationships, err := r.GetRelationships("FAR-PART-1", nil)
		require.NoError(t, err)
		require.Len(t, relationships, 2)

		byType := map[model.EdgeType]string{}
		for _, relationship := range relationships {
			byType[relationship.Type] = relationship.Node.NaturalKey
		}
		assert.Equal(t, "GSA", byType[model.EdgeTypeIssuedBy])
		assert.Equal(t, "1234-AB56", byType[model.EdgeTypeReferences])

		// Cleanup
		deleted, err := r.DeleteDocument(ctx, "FAR-PART-1")
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("Re-storing the same document is idempotent", func(t *testing.T) {
		record := farPart("FAR-PART-2", "Federal Acquisition Regulation Part 2", "GSA", "1234-AB56")
		require.NoError(t, r.StoreDocument(ctx, record))
		firstCreatedAt := record.CreatedAt

		record.Title = "Federal Acquisition Regulation Part 2 Revised"
		require.NoError(t, r.StoreDocument(ctx, record))

		stored, err := r.GetDocument("FAR-PART-2")
		require.NoError(t, err)
		assert.Equal(t, "Federal Acquisition Regulation Part 2 Revised", stored.Title)
		assert.Equal(t, firstCreatedAt.UTC(), stored.CreatedAt.UTC(), "created_at survives the re-store")
		assert.True(t, stored.UpdatedAt.After(stored.CreatedAt))

		relationships, err := r.GetRelationships("FAR-PART-2", nil)
		require.NoError(t, err)
		assert.Len(t, relationships, 2, "re-projection must not duplicate edges")

		// Cleanup
		_, err = r.DeleteDocument(ctx, "FAR-PART-2")
		require.NoError(t, err)
	})

	t.Run("Invalid record is rejected before any write", func(t *testing.T) {
		record := farPart("", "No id", "GSA", "1234-AB56")

		err := r.StoreDocument(ctx, record)
		assert.True(t, model.IsValidation(err))
	})
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	r := initRegraph(t)

	t.Run("Delete cascades across stores but keeps shared entities", func(t *testing.T) {
		require.NoError(t, r.StoreDocument(ctx, farPart("DEL-1", "Deletable rule", "GSA-DEL", "9999-ZZ99")))
		require.NoError(t, r.StoreDocument(ctx, farPart("DEL-2", "Surviving rule", "GSA-DEL", "9999-ZZ99")))

		deleted, err := r.DeleteDocument(ctx, "DEL-1")
		require.NoError(t, err)
		assert.True(t, deleted)

		_, err = r.GetDocument("DEL-1")
		assert.ErrorIs(t, err, model.ErrNotFound)

		relationships, err := r.GetRelationships("DEL-1", nil)
		require.NoError(t, err)
		assert.Empty(t, relationships)

		relationships, err = r.GetRelationships("DEL-2", nil)
		require.NoError(t, err)
		assert.Len(t, relationships, 2, "shared entity nodes survive the delete")

		// Cleanup
		_, err = r.DeleteDocument(ctx, "DEL-2")
		require.NoError(t, err)
	})

	t.Run("Deleting an absent document reports false", func(t *testing.T) {
		deleted, err := r.DeleteDocument(ctx, "never-stored")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}

func TestFindRelated(t *testing.T) {
	ctx := context.Background()
	r := initRegraph(t)

	require.NoError(t, r.StoreDocument(ctx, farPart("REL-A", "Rule A", "REL-AGENCY", "REL-REG-1")))
	require.NoError(t, r.StoreDocument(ctx, farPart("REL-B", "Rule B", "REL-AGENCY", "REL-REG-2")))
	require.NoError(t, r.StoreDocument(ctx, farPart("REL-C", "Rule C", "OTHER-AGENCY", "REL-REG-2")))

	t.Cleanup(func() {
		for _, id := range []string{"REL-A", "REL-B", "REL-C"} {
			r.DeleteDocument(ctx, id)
		}
	})

	t.Run("Documents sharing an entity are two hops apart", func(t *testing.T) {
		related, err := r.FindRelated(ctx, "REL-A", 2, nil)
		require.NoError(t, err)

		ids := map[string]int{}
		for _, document := range related {
			ids[document.Document.NaturalKey] = document.Depth
		}
		assert.Equal(t, 2, ids["REL-B"], "REL-B reached through the shared agency")
		assert.NotContains(t, ids, "REL-C", "REL-C is four hops away")
	})

	t.Run("Depth one returns no documents across entities", func(t *testing.T) {
		related, err := r.FindRelated(ctx, "REL-A", 1, nil)
		require.NoError(t, err)
		assert.Empty(t, related, "one hop only reaches entity nodes")
	})

	t.Run("Direct document reference is one hop", func(t *testing.T) {
		err := r.Sync.Link(ctx, "REL-A", model.EdgeTypeReferences,
			model.EntityKey{Kind: model.NodeKindDocument, Key: "REL-C"}, nil)
		require.NoError(t, err)

		related, err := r.FindRelated(ctx, "REL-A", 1, nil)
		require.NoError(t, err)
		require.Len(t, related, 1)
		assert.Equal(t, "REL-C", related[0].Document.NaturalKey)
		assert.Equal(t, []model.EdgeType{model.EdgeTypeReferences}, related[0].PathTypes)
	})

	t.Run("Unknown document is not found", func(t *testing.T) {
		_, err := r.FindRelated(ctx, "never-stored", 2, nil)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()
	r := initRegraph(t)

	require.NoError(t, r.StoreDocument(ctx, farPart("RET-1", "Cybersecurity requirements for contractors", "RET-AGENCY", "RET-REG-1")))
	require.NoError(t, r.StoreDocument(ctx, farPart("RET-2", "Environmental review procedures", "RET-AGENCY", "RET-REG-2")))

	t.Cleanup(func() {
		for _, id := range []string{"RET-1", "RET-2"} {
			r.DeleteDocument(ctx, id)
		}
	})

	t.Run("Federated query finds the matching document", func(t *testing.T) {
		criteria := model.DefaultSearchCriteria("cybersecurity requirements")

		results, diagnostics, err := r.Retrieve(ctx, criteria)
		require.NoError(t, err)
		assert.False(t, diagnostics.Degraded())
		require.NotEmpty(t, results)

		var match *model.RetrievalResult
		for _, result := range results {
			if result.ID == "RET-1" {
				match = result
			}
		}
		require.NotNil(t, match, "graph branch must surface the full-text match")
		assert.NotNil(t, match.Relationships, "results are relationship-enriched")
	})

	t.Run("Empty query is rejected", func(t *testing.T) {
		_, _, err := r.Retrieve(ctx, model.SearchCriteria{})
		assert.True(t, model.IsValidation(err))
	})

	t.Run("Coverage scoring reports missing aspects", func(t *testing.T) {
		criteria := model.DefaultSearchCriteria("cybersecurity requirements")

		results, report, _, err := r.RetrieveWithCoverage(ctx, criteria, []string{"quantum computing"}, gap.DefaultPolicy())
		require.NoError(t, err)
		require.NotNil(t, report)
		assert.NotEmpty(t, results)
		require.NotEmpty(t, report.Gaps)
		assert.Contains(t, report.Gaps[0].Description, "quantum computing")
	})

	t.Run("Covered aspects pass the policy", func(t *testing.T) {
		criteria := model.DefaultSearchCriteria("cybersecurity requirements")

		_, report, _, err := r.RetrieveWithCoverage(ctx, criteria, []string{"cybersecurity"}, gap.DefaultPolicy())
		require.NoError(t, err)
		assert.Empty(t, report.Gaps)
		assert.Equal(t, 1.0, report.Completeness)
	})
}
