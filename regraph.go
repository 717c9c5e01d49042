package regraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/regraph/regraph/core/gap"
	coregraph "github.com/regraph/regraph/core/graph"
	"github.com/regraph/regraph/core/retrieval"
	"github.com/regraph/regraph/core/semantic"
	"github.com/regraph/regraph/core/sync"
	"github.com/regraph/regraph/database"
	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/model"
	loadSql "github.com/regraph/regraph/sql"
)

// Regraph provides a unified interface to the record store, the relationship
// graph and the semantic index
type Regraph struct {
	DB         *helper.Database
	Records    *database.RecordsDBHandler
	Graph      *database.GraphDBHandler
	Embeddings *database.EmbeddingsDBHandler
	Sync       *sync.Synchronizer
	Engine     *retrieval.Engine // Federated retrieval, available after SetEmbedder
	Gaps       *gap.Scorer
	// Logging
	embed semantic.EmbedFunc
	log   *slog.Logger
}

// New creates a Regraph instance with all handlers initialized
func New(config *helper.DatabaseConfiguration, embeddingDim int) (*Regraph, error) {
	// Logger
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	// Initialize database
	db := helper.NewDatabase("regraph", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// Create all handlers
	// force=false to not reload if functions already exist
	records, err := database.NewRecordsDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create records handler", err)
	}

	graph, err := database.NewGraphDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create graph handler", err)
	}

	embeddings, err := database.NewEmbeddingsDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create embeddings handler", err)
	}

	return &Regraph{
		DB:         db,
		Records:    records,
		Graph:      graph,
		Embeddings: embeddings,
		Sync:       sync.NewSynchronizer(graph, logger),
		Gaps:       gap.NewScorer(nil, logger),
		log:        logger,
	}, nil
}

// Close closes the database connection
func (r *Regraph) Close() error {
	if r.DB != nil && r.DB.Instance != nil {
		return r.DB.Close()
	}
	return nil
}

// SetEmbedder sets the embedding function and wires the federated retrieval
// engine over both search branches. Without an embedder only the record and
// graph operations are available.
func (r *Regraph) SetEmbedder(embed semantic.EmbedFunc) {
	r.embed = embed
	r.Engine = retrieval.NewEngine(
		coregraph.NewSearcher(r.Graph),
		semantic.NewSearcher(r.Embeddings, embed),
		r.Graph,
		r.log,
	)
}

// UseDefaultEmbedder wires the retrieval engine with the all-MiniLM-L6-v2
// embedder (384 dimensions). The model is downloaded on first use.
func (r *Regraph) UseDefaultEmbedder() error {
	embed, err := semantic.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}
	r.SetEmbedder(embed)
	return nil
}

// StoreDocument validates and upserts a document record, projects its
// relationships into the graph, and indexes it in the semantic store. Only the
// record write is required to succeed; projection and indexing are best
// effort, restored by the next write of the same document.
func (r *Regraph) StoreDocument(ctx context.Context, record *model.DocumentRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	if err := r.Records.UpsertDocument(record); err != nil {
		return helper.NewError("upsert document", err)
	}

	if err := r.Sync.Project(ctx, record); err != nil {
		r.log.Warn("Graph projection failed, record stored without relationships",
			slog.String("document_id", record.DocumentID),
			slog.String("error", err.Error()),
		)
	}

	if r.embed != nil {
		r.indexEmbedding(record)
	}

	r.log.Info("Stored document", slog.String("document_id", record.DocumentID), slog.String("title", record.Title))
	return nil
}

// indexEmbedding embeds the record's search content and upserts the semantic
// index entry. Failures are logged, not returned.
func (r *Regraph) indexEmbedding(record *model.DocumentRecord) {
	embedding, err := r.embed(record.SearchContent())
	if err != nil {
		r.log.Warn("Embedding generation failed, record stored without semantic index",
			slog.String("document_id", record.DocumentID),
			slog.String("error", err.Error()),
		)
		return
	}

	err = r.Embeddings.UpsertEmbedding(record.DocumentID, record.SearchContent(), record.NodeProperties(), embedding)
	if err != nil {
		r.log.Warn("Semantic index write failed, record stored without semantic index",
			slog.String("document_id", record.DocumentID),
			slog.String("error", err.Error()),
		)
	}
}

// GetDocument retrieves a document record by its document id.
// Returns model.ErrNotFound if no record exists.
func (r *Regraph) GetDocument(documentID string) (*model.DocumentRecord, error) {
	return r.Records.SelectDocument(documentID)
}

// ListDocuments lists document records matching the filter, newest
// publication date first.
func (r *Regraph) ListDocuments(filter *model.RecordFilter, limit int, offset int) ([]*model.DocumentRecord, error) {
	return r.Records.SearchDocuments(filter, limit, offset)
}

// GetRelationships returns the typed relationships of a document with the
// nodes on their far ends. An empty edgeTypes slice queries all types.
func (r *Regraph) GetRelationships(documentID string, edgeTypes []model.EdgeType) ([]model.Relationship, error) {
	return r.Graph.SelectRelationships(documentID, edgeTypes)
}

// FindRelated returns the documents reachable from the given document within
// maxDepth relationship hops. Depth is clamped to [1, 3].
func (r *Regraph) FindRelated(ctx context.Context, documentID string, maxDepth int, edgeTypes []model.EdgeType) ([]*model.RelatedDocument, error) {
	return coregraph.FindRelated(ctx, r.Graph, documentID, maxDepth, edgeTypes)
}

// DeleteDocument removes a document from all three stores. The record delete
// decides the outcome; graph and semantic cleanup only run when a record was
// actually removed, and their failures are logged, not returned.
func (r *Regraph) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	deleted, err := r.Records.DeleteDocument(documentID)
	if err != nil {
		return false, helper.NewError("delete document", err)
	}
	if !deleted {
		return false, nil
	}

	if err := r.Sync.Remove(ctx, documentID); err != nil {
		r.log.Warn("Graph cleanup failed after record delete",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
	}
	if _, err := r.Embeddings.DeleteEmbedding(documentID); err != nil {
		r.log.Warn("Semantic index cleanup failed after record delete",
			slog.String("document_id", documentID),
			slog.String("error", err.Error()),
		)
	}

	return true, nil
}

// Retrieve runs a federated query across the graph and semantic branches.
// The diagnostics report which branches degraded.
func (r *Regraph) Retrieve(ctx context.Context, criteria model.SearchCriteria) ([]*model.RetrievalResult, model.RetrievalDiagnostics, error) {
	if r.Engine == nil {
		return nil, model.RetrievalDiagnostics{}, helper.NewError("federated retrieval", fmt.Errorf("retrieval engine not initialized, use SetEmbedder() first"))
	}
	return r.Engine.Retrieve(ctx, criteria)
}

// RetrieveWithCoverage runs a federated query and scores the result set
// against the required aspects. When the report fails the policy the query is
// retried once with widened criteria, and the second attempt is returned
// whether or not it is sufficient.
func (r *Regraph) RetrieveWithCoverage(ctx context.Context, criteria model.SearchCriteria, requiredAspects []string, policy gap.Policy) ([]*model.RetrievalResult, *model.GapReport, model.RetrievalDiagnostics, error) {
	results, diagnostics, err := r.Retrieve(ctx, criteria)
	if err != nil {
		return nil, nil, diagnostics, err
	}

	report, err := r.Gaps.Score(ctx, results, requiredAspects)
	if err != nil {
		return nil, nil, diagnostics, helper.NewError("score coverage", err)
	}
	if policy.Sufficient(report) {
		return results, report, diagnostics, nil
	}

	r.log.Info("Coverage insufficient, widening the query once",
		slog.Float64("completeness", report.Completeness),
		slog.Int("gaps", len(report.Gaps)),
	)

	widened := criteria
	if widened.MaxResults <= 0 {
		widened.MaxResults = model.DefaultSearchCriteria("").MaxResults
	}
	widened.MaxResults *= 2
	widened.MinRelevance = 0.0

	results, diagnostics, err = r.Retrieve(ctx, widened)
	if err != nil {
		return nil, nil, diagnostics, err
	}
	report, err = r.Gaps.Score(ctx, results, requiredAspects)
	if err != nil {
		return nil, nil, diagnostics, helper.NewError("score coverage", err)
	}

	return results, report, diagnostics, nil
}
