package model

import (
	"time"
)

// DocumentRecord represents a regulatory document in the record store.
// DocumentID is the natural key: it is stable across updates and uniquely
// identifies at most one live record. Writes are idempotent upserts.
type DocumentRecord struct {
	DocumentID      string           `json:"document_id"`
	Source          string           `json:"source"`
	Title           string           `json:"title"`
	DocumentType    string           `json:"document_type"`
	PublicationDate time.Time        `json:"publication_date"`
	Metadata        DocumentMetadata `json:"metadata,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Validate checks the fields an ingestion collaborator must supply.
func (d *DocumentRecord) Validate() error {
	if d.DocumentID == "" {
		return NewValidationError("document_id", "must not be empty")
	}
	if d.Source == "" {
		return NewValidationError("source", "must not be empty")
	}
	if d.Title == "" {
		return NewValidationError("title", "must not be empty")
	}
	if d.DocumentType == "" {
		return NewValidationError("document_type", "must not be empty")
	}
	if d.PublicationDate.IsZero() {
		return NewValidationError("publication_date", "must be set")
	}
	if d.Metadata.HTMLURL == "" {
		return NewValidationError("metadata.html_url", "must not be empty")
	}
	return nil
}

// NodeProperties returns the properties projected onto the document's graph
// node. The abstract is included so the graph-side full-text search branch
// has content to index.
func (d *DocumentRecord) NodeProperties() Properties {
	return Properties{
		"document_id":      d.DocumentID,
		"title":            d.Title,
		"source":           d.Source,
		"document_type":    d.DocumentType,
		"publication_date": d.PublicationDate.Format("2006-01-02"),
		"abstract":         d.Metadata.Abstract,
	}
}

// SearchContent returns the text indexed by the semantic backend for this
// record. Title plus abstract, matching what the graph branch indexes.
func (d *DocumentRecord) SearchContent() string {
	if d.Metadata.Abstract == "" {
		return d.Title
	}
	return d.Title + "\n\n" + d.Metadata.Abstract
}
