package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/model"
	loadSql "github.com/regraph/regraph/sql"
)

// EmbeddingsDBHandlerFunctions defines the interface for semantic index operations.
type EmbeddingsDBHandlerFunctions interface {
	UpsertEmbedding(documentID string, content string, metadata model.Properties, embedding []float32) error
	SearchBySimilarity(embedding []float32, filters model.Properties, limit int) ([]*model.SemanticHit, error)
	DeleteEmbedding(documentID string) (bool, error)
}

// EmbeddingsDBHandler handles semantic index database operations
type EmbeddingsDBHandler struct {
	db  *helper.Database
	dim int
}

// NewEmbeddingsDBHandler creates a new embeddings database handler for
// vectors of the given dimension. It loads the embedding store SQL functions
// and creates the table. If force is true, it will reload the SQL functions
// even if they already exist.
func NewEmbeddingsDBHandler(db *helper.Database, dim int, force bool) (*EmbeddingsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if dim <= 0 {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("embedding dimension must be positive, got %d", dim))
	}

	embeddingsDbHandler := &EmbeddingsDBHandler{
		db:  db,
		dim: dim,
	}

	err := loadSql.LoadEmbeddingsSql(embeddingsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load embeddings sql", err)
	}

	err = embeddingsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EmbeddingsDBHandler")

	return embeddingsDbHandler, nil
}

// CreateTable creates the 'document_embeddings' table with the configured
// vector dimension. If the table already exists, it does not create it again.
// It also creates the HNSW similarity index.
func (h *EmbeddingsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_embeddings($1);`, h.dim)
	if err != nil {
		log.Panicf("error initializing document_embeddings table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table document_embeddings")

	return nil
}

// UpsertEmbedding writes or replaces the semantic index entry for a document.
func (h *EmbeddingsDBHandler) UpsertEmbedding(documentID string, content string, metadata model.Properties, embedding []float32) error {
	if len(embedding) != h.dim {
		return helper.NewError("embedding dimension validation", fmt.Errorf("expected %d dimensions, got %d", h.dim, len(embedding)))
	}

	_, err := h.db.Instance.Exec(
		`SELECT * FROM upsert_embedding($1, $2, $3, $4)`,
		documentID,
		content,
		metadata,
		pgvector.NewVector(embedding),
	)
	if err != nil {
		return helper.NewError("exec", err)
	}

	return nil
}

// SearchBySimilarity runs a cosine nearest-neighbour search against the
// stored embeddings. Filters apply exact-match containment against the entry
// metadata.
func (h *EmbeddingsDBHandler) SearchBySimilarity(embedding []float32, filters model.Properties, limit int) ([]*model.SemanticHit, error) {
	if len(embedding) != h.dim {
		return nil, helper.NewError("embedding dimension validation", fmt.Errorf("expected %d dimensions, got %d", h.dim, len(embedding)))
	}

	var filterArg interface{}
	if len(filters) > 0 {
		filterArg = filters
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_embeddings($1, $2, $3)`,
		pgvector.NewVector(embedding),
		filterArg,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var hits []*model.SemanticHit
	for rows.Next() {
		hit := &model.SemanticHit{}
		err := rows.Scan(
			&hit.DocumentID,
			&hit.Content,
			&hit.Metadata,
			&hit.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		hits = append(hits, hit)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return hits, nil
}

// DeleteEmbedding removes the semantic index entry for a document.
// The returned bool reports whether an entry was actually removed.
func (h *EmbeddingsDBHandler) DeleteEmbedding(documentID string) (bool, error) {
	var deleted bool
	err := h.db.Instance.QueryRow(
		`SELECT delete_embedding($1)`,
		documentID,
	).Scan(&deleted)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return deleted, nil
}
