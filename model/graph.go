package model

import (
	"time"

	"github.com/google/uuid"
)

// EdgeType represents the type of relationship between graph nodes
type EdgeType string

const (
	EdgeTypeIssuedBy   EdgeType = "ISSUED_BY"
	EdgeTypeReferences EdgeType = "REFERENCES"
)

// DefaultEdgeTypes are the relationship types queried when a caller passes
// none.
var DefaultEdgeTypes = []EdgeType{EdgeTypeIssuedBy, EdgeTypeReferences}

// NodeKind distinguishes document nodes from entity nodes
type NodeKind string

const (
	NodeKindDocument   NodeKind = "document"
	NodeKindAgency     NodeKind = "agency"
	NodeKindRegulation NodeKind = "regulation"
)

// GraphNode represents a node in the relationship graph. Document nodes
// mirror a DocumentRecord by document id; entity nodes (agencies,
// regulations) are deduplicated by their natural key.
type GraphNode struct {
	ID         uuid.UUID  `json:"id"`
	Kind       NodeKind   `json:"kind"`
	NaturalKey string     `json:"natural_key"`
	ExternalID string     `json:"external_id,omitempty"`
	Properties Properties `json:"properties,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EntityKey addresses a relationship target by its natural key rather than a
// graph-internal id: agency name, regulation id, or another document's id.
type EntityKey struct {
	Kind NodeKind `json:"kind"`
	Key  string   `json:"key"`
}

// Edge represents a directed, typed relationship between two graph nodes.
// Edges are idempotent: re-deriving the same relationship must not create a
// duplicate or bump CreatedAt.
type Edge struct {
	ID        uuid.UUID `json:"id"`
	SourceID  uuid.UUID `json:"source_id"`
	TargetID  uuid.UUID `json:"target_id"`
	EdgeType  EdgeType  `json:"edge_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Relationship pairs a typed edge with the node on its far end, as returned
// by relationship lookups.
type Relationship struct {
	Type      EdgeType   `json:"type"`
	Node      *GraphNode `json:"node"`
	CreatedAt time.Time  `json:"created_at"`
}

// RelatedDocument is a document node reached by bounded traversal, together
// with the relationship types along the path that reached it.
type RelatedDocument struct {
	Document  *GraphNode `json:"document"`
	Depth     int        `json:"depth"`
	PathTypes []EdgeType `json:"relationships_on_path"`
}

// GraphSearchHit is a document node matched by the graph store's full-text
// index, with its rank score.
type GraphSearchHit struct {
	Node  *GraphNode `json:"node"`
	Score float64    `json:"score"`
}
