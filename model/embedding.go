package model

import "time"

// DocumentEmbedding is a stored semantic index entry: one embedding per
// document over its search content.
type DocumentEmbedding struct {
	DocumentID string     `json:"document_id"`
	Content    string     `json:"content"`
	Metadata   Properties `json:"metadata,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// SemanticHit is a document matched by similarity search. Similarity is
// cosine similarity in [0, 1], higher is closer.
type SemanticHit struct {
	DocumentID string     `json:"document_id"`
	Content    string     `json:"content"`
	Metadata   Properties `json:"metadata,omitempty"`
	Similarity float64    `json:"similarity"`
}
