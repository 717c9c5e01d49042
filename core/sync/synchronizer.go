package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/model"
)

// GraphWriter is the set of graph store operations the synchronizer needs
type GraphWriter interface {
	UpsertDocumentNode(documentID string, properties model.Properties) (*model.GraphNode, error)
	SelectNodeByKey(kind model.NodeKind, naturalKey string) (*model.GraphNode, error)
	UpsertEntityNode(key model.EntityKey, externalID string, properties model.Properties) (*model.GraphNode, error)
	InsertEdge(sourceID uuid.UUID, targetID uuid.UUID, edgeType model.EdgeType) (*model.Edge, error)
	DeleteDocumentNode(documentID string) (bool, error)
}

// Synchronizer projects document record writes into the relationship graph so
// callers never have to know about the graph. The projection is best-effort:
// the two stores are never wrapped in one transaction, and a failed edge write
// is logged and skipped rather than rolling back the record. Consistency
// between the stores is eventual, restored by the next re-ingestion of the
// same document.
type Synchronizer struct {
	graph  GraphWriter
	retry  helper.RetryPolicy
	logger *slog.Logger
}

// NewSynchronizer creates a synchronizer over the given graph store.
func NewSynchronizer(graph GraphWriter, logger *slog.Logger) *Synchronizer {
	return &Synchronizer{
		graph:  graph,
		retry:  helper.DefaultRetryPolicy(),
		logger: logger,
	}
}

// WithRetryPolicy overrides the retry policy applied to graph writes.
func (s *Synchronizer) WithRetryPolicy(retry helper.RetryPolicy) *Synchronizer {
	s.retry = retry
	return s
}

// Project derives graph state from a freshly upserted record: the document
// node itself, one ISSUED_BY edge per agency in the metadata, and one
// REFERENCES edge per regulation id. Only a failure to write the document
// node is returned as an error; per-edge failures are logged and the
// remaining edges are still attempted.
func (s *Synchronizer) Project(ctx context.Context, record *model.DocumentRecord) error {
	var documentNode *model.GraphNode
	err := s.retry.Do(ctx, func() error {
		var err error
		documentNode, err = s.graph.UpsertDocumentNode(record.DocumentID, record.NodeProperties())
		return err
	})
	if err != nil {
		return helper.NewError("upsert document node", err)
	}

	for _, agency := range record.Metadata.Agencies {
		if agency.Name == "" {
			continue
		}
		key := model.EntityKey{Kind: model.NodeKindAgency, Key: agency.Name}
		properties := model.Properties{"name": agency.Name}
		s.link(ctx, record.DocumentID, documentNode.ID, model.EdgeTypeIssuedBy, key, agency.ID, properties)
	}

	for _, regulationID := range record.Metadata.RegulationIDs {
		if regulationID == "" {
			continue
		}
		key := model.EntityKey{Kind: model.NodeKindRegulation, Key: regulationID}
		properties := model.Properties{"regulation_id": regulationID}
		s.link(ctx, record.DocumentID, documentNode.ID, model.EdgeTypeReferences, key, "", properties)
	}

	return nil
}

// Link creates a single relationship from a document to a target addressed by
// natural key, creating the target node if absent. Used for relationships the
// metadata projection does not cover, such as document-to-document references.
// The document node must already exist; linking from an unknown document is
// model.ErrNotFound.
func (s *Synchronizer) Link(ctx context.Context, documentID string, edgeType model.EdgeType, target model.EntityKey, targetProperties model.Properties) error {
	documentNode, err := s.graph.SelectNodeByKey(model.NodeKindDocument, documentID)
	if err != nil {
		return err
	}

	if !s.link(ctx, documentID, documentNode.ID, edgeType, target, "", targetProperties) {
		return helper.NewError("link relationship", fmt.Errorf("write failed for %s -%s-> %s", documentID, edgeType, target.Key))
	}
	return nil
}

// Remove drops the document's node and every incident edge after the primary
// record delete succeeded. Entity nodes orphaned by the removal are retained.
func (s *Synchronizer) Remove(ctx context.Context, documentID string) error {
	err := s.retry.Do(ctx, func() error {
		_, err := s.graph.DeleteDocumentNode(documentID)
		return err
	})
	if err != nil {
		return helper.NewError("delete document node", err)
	}
	return nil
}

// link upserts the target node and the edge, reporting success. Failures are
// logged, not returned, so one bad relationship never aborts the projection.
func (s *Synchronizer) link(ctx context.Context, documentID string, documentNodeID uuid.UUID, edgeType model.EdgeType, target model.EntityKey, externalID string, properties model.Properties) bool {
	var targetNode *model.GraphNode
	err := s.retry.Do(ctx, func() error {
		var err error
		targetNode, err = s.graph.UpsertEntityNode(target, externalID, properties)
		return err
	})
	if err != nil {
		s.logger.Warn("Skipping relationship, target node write failed",
			slog.String("document_id", documentID),
			slog.String("edge_type", string(edgeType)),
			slog.String("target", target.Key),
			slog.String("error", err.Error()),
		)
		return false
	}

	err = s.retry.Do(ctx, func() error {
		_, err := s.graph.InsertEdge(documentNodeID, targetNode.ID, edgeType)
		return err
	})
	if err != nil {
		s.logger.Warn("Skipping relationship, edge write failed",
			slog.String("document_id", documentID),
			slog.String("edge_type", string(edgeType)),
			slog.String("target", target.Key),
			slog.String("error", err.Error()),
		)
		return false
	}

	return true
}
