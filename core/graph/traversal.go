package graph

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/regraph/regraph/model"
)

// Traversal depth is clamped to [MinDepth, MaxDepth] and results are capped
// so a dense graph cannot blow up a single lookup.
const (
	MinDepth  = 1
	MaxDepth  = 3
	ResultCap = 100
)

// GraphDB defines the graph store operations traversal needs
type GraphDB interface {
	SelectNodeByKey(kind model.NodeKind, naturalKey string) (*model.GraphNode, error)
	SelectNodeByID(id uuid.UUID) (*model.GraphNode, error)
	SelectEdgesForNode(nodeID uuid.UUID, edgeTypes []model.EdgeType) ([]*model.Edge, error)
}

type traversalState struct {
	node      *model.GraphNode
	depth     int
	pathTypes []model.EdgeType
}

// FindRelated performs a bounded breadth-first traversal from the document
// with the given id and returns the document nodes reachable within maxDepth
// hops. Edges are followed in both directions and entity nodes are traversed
// but never returned, so two documents issued by the same agency are two hops
// apart. The origin document is excluded from the results.
//
// A missing origin returns model.ErrNotFound. A nil edgeTypes slice follows
// all relationship types.
func FindRelated(ctx context.Context, db GraphDB, documentID string, maxDepth int, edgeTypes []model.EdgeType) ([]*model.RelatedDocument, error) {
	if maxDepth < MinDepth {
		maxDepth = MinDepth
	}
	if maxDepth > MaxDepth {
		maxDepth = MaxDepth
	}

	origin, err := db.SelectNodeByKey(model.NodeKindDocument, documentID)
	if err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{origin.ID: true}
	queue := []traversalState{{node: origin, depth: 0}}

	var results []*model.RelatedDocument
	for len(queue) > 0 && len(results) < ResultCap {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]

		if current.depth >= maxDepth {
			continue
		}

		edges, err := db.SelectEdgesForNode(current.node.ID, edgeTypes)
		if err != nil {
			return nil, err
		}

		for _, edge := range edges {
			targetID := edge.TargetID
			if targetID == current.node.ID {
				targetID = edge.SourceID
			}
			if visited[targetID] {
				continue
			}
			visited[targetID] = true

			target, err := db.SelectNodeByID(targetID)
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}

			pathTypes := make([]model.EdgeType, len(current.pathTypes), len(current.pathTypes)+1)
			copy(pathTypes, current.pathTypes)
			pathTypes = append(pathTypes, edge.EdgeType)

			next := traversalState{
				node:      target,
				depth:     current.depth + 1,
				pathTypes: pathTypes,
			}

			if target.Kind == model.NodeKindDocument {
				results = append(results, &model.RelatedDocument{
					Document:  target,
					Depth:     next.depth,
					PathTypes: pathTypes,
				})
				if len(results) >= ResultCap {
					break
				}
			}

			queue = append(queue, next)
		}
	}

	return results, nil
}
