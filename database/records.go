package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/model"
	loadSql "github.com/regraph/regraph/sql"
)

// maxSearchLimit caps record listings so an unbounded filter cannot drag the
// whole table into memory.
const maxSearchLimit = 1000

// RecordsDBHandlerFunctions defines the interface for record store operations.
type RecordsDBHandlerFunctions interface {
	UpsertDocument(doc *model.DocumentRecord) error
	SelectDocument(documentID string) (*model.DocumentRecord, error)
	SearchDocuments(filter *model.RecordFilter, limit int, offset int) ([]*model.DocumentRecord, error)
	DeleteDocument(documentID string) (bool, error)
}

// RecordsDBHandler handles document record database operations
type RecordsDBHandler struct {
	db *helper.Database
}

// NewRecordsDBHandler creates a new records database handler.
// It loads the record store SQL functions and creates the documents table.
// If force is true, it will reload the SQL functions even if they already exist.
func NewRecordsDBHandler(db *helper.Database, force bool) (*RecordsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	recordsDbHandler := &RecordsDBHandler{
		db: db,
	}

	err := loadSql.LoadRecordsSql(recordsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load records sql", err)
	}

	err = recordsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RecordsDBHandler")

	return recordsDbHandler, nil
}

// CreateTable creates the 'documents' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *RecordsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_records();`)
	if err != nil {
		log.Panicf("error initializing documents table: %#v", err)
	}

	h.db.Logger.Info("Checked/created table documents")

	return nil
}

// UpsertDocument inserts a document or updates the existing record with the
// same document id. The record is refreshed with the stored row, so CreatedAt
// and UpdatedAt reflect what the database holds.
func (h *RecordsDBHandler) UpsertDocument(doc *model.DocumentRecord) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_document($1, $2, $3, $4, $5, $6)`,
		doc.DocumentID,
		doc.Source,
		doc.Title,
		doc.DocumentType,
		doc.PublicationDate,
		doc.Metadata,
	)

	err := row.Scan(
		&doc.DocumentID,
		&doc.Source,
		&doc.Title,
		&doc.DocumentType,
		&doc.PublicationDate,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// SelectDocument retrieves a document record by its document id.
// Returns model.ErrNotFound if no record exists.
func (h *RecordsDBHandler) SelectDocument(documentID string) (*model.DocumentRecord, error) {
	doc := &model.DocumentRecord{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_document($1)`,
		documentID,
	)

	err := row.Scan(
		&doc.DocumentID,
		&doc.Source,
		&doc.Title,
		&doc.DocumentType,
		&doc.PublicationDate,
		&doc.Metadata,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return doc, nil
}

// SearchDocuments lists document records matching the filter, newest
// publication date first. Nil filter fields are ignored.
func (h *RecordsDBHandler) SearchDocuments(filter *model.RecordFilter, limit int, offset int) ([]*model.DocumentRecord, error) {
	if filter == nil {
		filter = &model.RecordFilter{}
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_documents($1, $2, $3, $4, $5, $6)`,
		filter.Source,
		filter.DocumentType,
		filter.StartDate,
		filter.EndDate,
		limit,
		offset,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var documents []*model.DocumentRecord
	for rows.Next() {
		doc := &model.DocumentRecord{}
		err := rows.Scan(
			&doc.DocumentID,
			&doc.Source,
			&doc.Title,
			&doc.DocumentType,
			&doc.PublicationDate,
			&doc.Metadata,
			&doc.CreatedAt,
			&doc.UpdatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		documents = append(documents, doc)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return documents, nil
}

// DeleteDocument deletes a document record by its document id.
// The returned bool reports whether a record was actually removed.
func (h *RecordsDBHandler) DeleteDocument(documentID string) (bool, error) {
	var deleted bool
	err := h.db.Instance.QueryRow(
		`SELECT delete_document($1)`,
		documentID,
	).Scan(&deleted)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return deleted, nil
}
