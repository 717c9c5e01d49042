package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/model"
	loadSql "github.com/regraph/regraph/sql"
)

// GraphDBHandlerFunctions defines the interface for graph store operations.
type GraphDBHandlerFunctions interface {
	UpsertDocumentNode(documentID string, properties model.Properties) (*model.GraphNode, error)
	UpsertEntityNode(key model.EntityKey, externalID string, properties model.Properties) (*model.GraphNode, error)
	InsertEdge(sourceID uuid.UUID, targetID uuid.UUID, edgeType model.EdgeType) (*model.Edge, error)
	SelectNodeByKey(kind model.NodeKind, naturalKey string) (*model.GraphNode, error)
	SelectNodeByID(id uuid.UUID) (*model.GraphNode, error)
	SelectEdgesForNode(nodeID uuid.UUID, edgeTypes []model.EdgeType) ([]*model.Edge, error)
	SelectRelationships(documentID string, edgeTypes []model.EdgeType) ([]model.Relationship, error)
	SelectRelationshipsBatch(documentIDs []string, edgeTypes []model.EdgeType) (map[string][]model.Relationship, error)
	DeleteDocumentNode(documentID string) (bool, error)
	SearchDocumentNodes(query string, filters model.Properties, limit int) ([]*model.GraphSearchHit, error)
}

// GraphDBHandler handles graph node and edge database operations
type GraphDBHandler struct {
	db *helper.Database
}

// NewGraphDBHandler creates a new graph database handler.
// It loads the graph store SQL functions and creates the node and edge tables.
// If force is true, it will reload the SQL functions even if they already exist.
func NewGraphDBHandler(db *helper.Database, force bool) (*GraphDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	graphDbHandler := &GraphDBHandler{
		db: db,
	}

	err := loadSql.LoadGraphSql(graphDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load graph sql", err)
	}

	err = graphDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized GraphDBHandler")

	return graphDbHandler, nil
}

// CreateTable creates the 'graph_nodes' and 'graph_edges' tables.
// If the tables already exist, it does not create them again.
// It also creates the graph_edge_type enum and all necessary indexes.
func (h *GraphDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_graph();`)
	if err != nil {
		log.Panicf("error initializing graph tables: %#v", err)
	}

	h.db.Logger.Info("Checked/created tables graph_nodes and graph_edges")

	return nil
}

// UpsertDocumentNode inserts or refreshes the graph node mirroring a document
// record. Properties are replaced, not merged.
func (h *GraphDBHandler) UpsertDocumentNode(documentID string, properties model.Properties) (*model.GraphNode, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_document_node($1, $2)`,
		documentID,
		properties,
	)

	return scanNode(row.Scan)
}

// UpsertEntityNode inserts an entity node or converges on the existing one
// with the same natural key. Properties are merged into the stored node.
func (h *GraphDBHandler) UpsertEntityNode(key model.EntityKey, externalID string, properties model.Properties) (*model.GraphNode, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM upsert_entity_node($1, $2, $3, $4)`,
		string(key.Kind),
		key.Key,
		externalID,
		properties,
	)

	return scanNode(row.Scan)
}

// InsertEdge creates a typed directed edge between two nodes. Inserting an
// edge that already exists returns the stored edge with its original
// CreatedAt.
func (h *GraphDBHandler) InsertEdge(sourceID uuid.UUID, targetID uuid.UUID, edgeType model.EdgeType) (*model.Edge, error) {
	edge := &model.Edge{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_edge($1, $2, $3)`,
		sourceID,
		targetID,
		string(edgeType),
	)

	err := row.Scan(
		&edge.ID,
		&edge.SourceID,
		&edge.TargetID,
		&edge.EdgeType,
		&edge.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return edge, nil
}

// SelectNodeByKey retrieves a node by kind and natural key.
// Returns model.ErrNotFound if no node exists.
func (h *GraphDBHandler) SelectNodeByKey(kind model.NodeKind, naturalKey string) (*model.GraphNode, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_node_by_key($1, $2)`,
		string(kind),
		naturalKey,
	)

	node, err := scanNode(row.Scan)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return node, err
}

// SelectNodeByID retrieves a node by its graph-internal id.
// Returns model.ErrNotFound if no node exists.
func (h *GraphDBHandler) SelectNodeByID(id uuid.UUID) (*model.GraphNode, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_node_by_id($1)`,
		id,
	)

	node, err := scanNode(row.Scan)
	if err != nil && errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return node, err
}

// SelectEdgesForNode retrieves edges incident to a node in either direction.
// A nil edgeTypes slice matches all relationship types.
func (h *GraphDBHandler) SelectEdgesForNode(nodeID uuid.UUID, edgeTypes []model.EdgeType) ([]*model.Edge, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_edges_for_node($1, $2)`,
		nodeID,
		edgeTypesArray(edgeTypes),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var edges []*model.Edge
	for rows.Next() {
		edge := &model.Edge{}
		err := rows.Scan(
			&edge.ID,
			&edge.SourceID,
			&edge.TargetID,
			&edge.EdgeType,
			&edge.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		edges = append(edges, edge)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return edges, nil
}

// SelectRelationships retrieves the outgoing relationships of a document with
// the node on the far end of each edge. Passing no edge types queries the
// default set. A document with no relationships yields an empty slice, not an
// error.
func (h *GraphDBHandler) SelectRelationships(documentID string, edgeTypes []model.EdgeType) ([]model.Relationship, error) {
	if len(edgeTypes) == 0 {
		edgeTypes = model.DefaultEdgeTypes
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships($1, $2)`,
		documentID,
		edgeTypesArray(edgeTypes),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relationships []model.Relationship
	for rows.Next() {
		rel, _, err := scanRelationship(rows, false)
		if err != nil {
			return nil, err
		}
		relationships = append(relationships, rel)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relationships, nil
}

// SelectRelationshipsBatch retrieves outgoing relationships for many documents
// in one round trip, keyed by document id. Documents without relationships are
// absent from the map.
func (h *GraphDBHandler) SelectRelationshipsBatch(documentIDs []string, edgeTypes []model.EdgeType) (map[string][]model.Relationship, error) {
	if len(documentIDs) == 0 {
		return map[string][]model.Relationship{}, nil
	}
	if len(edgeTypes) == 0 {
		edgeTypes = model.DefaultEdgeTypes
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_relationships_batch($1, $2)`,
		pq.Array(documentIDs),
		edgeTypesArray(edgeTypes),
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	relationships := map[string][]model.Relationship{}
	for rows.Next() {
		rel, documentID, err := scanRelationship(rows, true)
		if err != nil {
			return nil, err
		}
		relationships[documentID] = append(relationships[documentID], rel)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relationships, nil
}

// DeleteDocumentNode deletes a document node and all of its incident edges.
// Entity nodes left without edges are retained. The returned bool reports
// whether a node was actually removed.
func (h *GraphDBHandler) DeleteDocumentNode(documentID string) (bool, error) {
	var deleted bool
	err := h.db.Instance.QueryRow(
		`SELECT delete_document_node($1)`,
		documentID,
	).Scan(&deleted)
	if err != nil {
		return false, helper.NewError("scan", err)
	}
	return deleted, nil
}

// SearchDocumentNodes runs a ranked full-text search over document node
// titles and abstracts. Filters apply exact-match containment against node
// properties.
func (h *GraphDBHandler) SearchDocumentNodes(query string, filters model.Properties, limit int) ([]*model.GraphSearchHit, error) {
	var filterArg interface{}
	if len(filters) > 0 {
		filterArg = filters
	}

	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_document_nodes($1, $2, $3)`,
		query,
		filterArg,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var hits []*model.GraphSearchHit
	for rows.Next() {
		node := &model.GraphNode{}
		var externalID sql.NullString
		var score float64
		err := rows.Scan(
			&node.ID,
			&node.Kind,
			&node.NaturalKey,
			&externalID,
			&node.Properties,
			&node.CreatedAt,
			&score,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}
		node.ExternalID = externalID.String

		hits = append(hits, &model.GraphSearchHit{
			Node:  node,
			Score: score,
		})
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return hits, nil
}

// edgeTypesArray converts edge types to the TEXT[] parameter the SQL
// functions expect. A nil or empty slice becomes a NULL array, which the
// functions treat as "all types".
func edgeTypesArray(edgeTypes []model.EdgeType) interface{} {
	if len(edgeTypes) == 0 {
		return pq.Array([]string(nil))
	}
	types := make([]string, 0, len(edgeTypes))
	for _, et := range edgeTypes {
		types = append(types, string(et))
	}
	return pq.Array(types)
}

// scanNode scans a single graph_nodes row via the given scan function.
func scanNode(scan func(dest ...interface{}) error) (*model.GraphNode, error) {
	node := &model.GraphNode{}
	var externalID sql.NullString

	err := scan(
		&node.ID,
		&node.Kind,
		&node.NaturalKey,
		&externalID,
		&node.Properties,
		&node.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	node.ExternalID = externalID.String
	return node, nil
}

// scanRelationship scans one relationship row, optionally with the leading
// document_id column the batch variant returns.
func scanRelationship(rows *sql.Rows, withDocumentID bool) (model.Relationship, string, error) {
	node := &model.GraphNode{}
	var rel model.Relationship
	var documentID string
	var externalID sql.NullString

	dest := []interface{}{}
	if withDocumentID {
		dest = append(dest, &documentID)
	}
	dest = append(dest,
		&rel.Type,
		&node.ID,
		&node.Kind,
		&node.NaturalKey,
		&externalID,
		&node.Properties,
		&node.CreatedAt,
		&rel.CreatedAt,
	)

	err := rows.Scan(dest...)
	if err != nil {
		return model.Relationship{}, "", helper.NewError("scan", err)
	}

	node.ExternalID = externalID.String
	rel.Node = node
	return rel, documentID, nil
}
