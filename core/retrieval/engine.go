package retrieval

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/regraph/regraph/helper"
	"github.com/regraph/regraph/model"
	"golang.org/x/sync/errgroup"
)

// DefaultBranchTimeout bounds each sub-search. A branch that exceeds it is
// treated as failed; the other branch keeps running.
const DefaultBranchTimeout = 15 * time.Second

// GraphSearcher is the graph-backed search branch.
type GraphSearcher interface {
	Search(ctx context.Context, criteria model.SearchCriteria) ([]*model.RetrievalResult, error)
}

// SemanticSearcher is the similarity-backed search branch.
type SemanticSearcher interface {
	Search(ctx context.Context, criteria model.SearchCriteria) ([]*model.RetrievalResult, error)
}

// RelationshipFetcher supplies the batched relationship lookup used to enrich
// surviving results.
type RelationshipFetcher interface {
	SelectRelationshipsBatch(documentIDs []string, edgeTypes []model.EdgeType) (map[string][]model.Relationship, error)
}

// QueryEnhancer optionally rewrites the free-text query before dispatch.
// Enhancement failures fall back to the original query.
type QueryEnhancer interface {
	Enhance(ctx context.Context, query string) (string, error)
}

// Engine federates a graph search branch and a semantic search branch into
// one ranked, deduplicated, relationship-enriched result list.
type Engine struct {
	graph         GraphSearcher
	semantic      SemanticSearcher
	relationships RelationshipFetcher
	enhancer      QueryEnhancer
	branchTimeout time.Duration
	logger        *slog.Logger
}

// NewEngine creates a new federated retrieval engine.
func NewEngine(graph GraphSearcher, semantic SemanticSearcher, relationships RelationshipFetcher, logger *slog.Logger) *Engine {
	return &Engine{
		graph:         graph,
		semantic:      semantic,
		relationships: relationships,
		branchTimeout: DefaultBranchTimeout,
		logger:        logger,
	}
}

// WithQueryEnhancer sets an optional query rewrite hook.
func (e *Engine) WithQueryEnhancer(enhancer QueryEnhancer) *Engine {
	e.enhancer = enhancer
	return e
}

// WithBranchTimeout overrides the per-branch search timeout.
func (e *Engine) WithBranchTimeout(timeout time.Duration) *Engine {
	e.branchTimeout = timeout
	return e
}

// Retrieve runs the federated query. A failed branch degrades to an empty
// candidate list for that branch and is reported through the diagnostics, so
// one unreachable backend never fails the whole call. Enrichment failures are
// likewise lenient: the unenriched results are returned with
// EnrichmentDegraded set.
func (e *Engine) Retrieve(ctx context.Context, criteria model.SearchCriteria) ([]*model.RetrievalResult, model.RetrievalDiagnostics, error) {
	diagnostics := model.RetrievalDiagnostics{}

	if criteria.Query == "" {
		return nil, diagnostics, model.NewValidationError("query", "must not be empty")
	}
	if criteria.MaxResults <= 0 {
		criteria.MaxResults = model.DefaultSearchCriteria("").MaxResults
	}

	if e.enhancer != nil {
		enhanced, err := e.enhancer.Enhance(ctx, criteria.Query)
		if err != nil {
			e.logger.Warn("Query enhancement failed, using original query", slog.String("error", err.Error()))
		} else {
			criteria.Query = enhanced
		}
	}

	var graphResults, semanticResults []*model.RetrievalResult

	// The branches share nothing but the immutable criteria. Each gets its
	// own timeout so a hung backend cannot stall the other branch's result.
	group := errgroup.Group{}
	group.Go(func() error {
		branchCtx, cancel := context.WithTimeout(ctx, e.branchTimeout)
		defer cancel()

		results, err := e.graph.Search(branchCtx, criteria)
		if err != nil {
			e.logger.Warn("Graph search branch failed", slog.String("error", err.Error()))
			diagnostics.GraphDegraded = true
			return nil
		}
		graphResults = results
		return nil
	})
	group.Go(func() error {
		branchCtx, cancel := context.WithTimeout(ctx, e.branchTimeout)
		defer cancel()

		results, err := e.semantic.Search(branchCtx, criteria)
		if err != nil {
			e.logger.Warn("Semantic search branch failed", slog.String("error", err.Error()))
			diagnostics.SemanticDegraded = true
			return nil
		}
		semanticResults = results
		return nil
	})
	if err := group.Wait(); err != nil {
		return nil, diagnostics, helper.NewError("dispatch sub-searches", err)
	}

	merged := mergeResults(graphResults, semanticResults, criteria.MinRelevance)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].RelevanceScore > merged[j].RelevanceScore
	})
	if len(merged) > criteria.MaxResults {
		merged = merged[:criteria.MaxResults]
	}

	e.enrich(merged, &diagnostics)

	e.logger.Info("Federated retrieval complete",
		slog.String("query", criteria.Query),
		slog.Int("graph_candidates", len(graphResults)),
		slog.Int("semantic_candidates", len(semanticResults)),
		slog.Int("results", len(merged)),
		slog.Bool("degraded", diagnostics.Degraded()),
	)

	return merged, diagnostics, nil
}

// mergeResults dedups the two candidate lists by id. Graph candidates are
// inserted first, so the later stable sort keeps graph-first ordering on score
// ties. When both branches return the same id the entry becomes "combined"
// with the max score, the semantic content, and a metadata union where the
// semantic branch wins conflicting keys.
func mergeResults(graphResults, semanticResults []*model.RetrievalResult, minRelevance float64) []*model.RetrievalResult {
	byID := make(map[string]*model.RetrievalResult, len(graphResults))
	var merged []*model.RetrievalResult

	for _, result := range graphResults {
		if result.RelevanceScore < minRelevance {
			continue
		}
		if _, ok := byID[result.ID]; ok {
			continue
		}
		byID[result.ID] = result
		merged = append(merged, result)
	}

	for _, result := range semanticResults {
		existing, ok := byID[result.ID]
		if !ok {
			if result.RelevanceScore < minRelevance {
				continue
			}
			byID[result.ID] = result
			merged = append(merged, result)
			continue
		}

		existing.Source = model.ResultSourceCombined
		if result.RelevanceScore > existing.RelevanceScore {
			existing.RelevanceScore = result.RelevanceScore
		}
		if result.Content != "" {
			existing.Content = result.Content
		}
		if existing.Metadata == nil {
			existing.Metadata = model.Properties{}
		}
		for key, value := range result.Metadata {
			existing.Metadata[key] = value
		}
	}

	return merged
}

// enrich attaches relationships to the surviving results in one batched graph
// lookup. A failed lookup leaves the results unenriched rather than failing
// the retrieval.
func (e *Engine) enrich(results []*model.RetrievalResult, diagnostics *model.RetrievalDiagnostics) {
	if len(results) == 0 {
		return
	}

	ids := make([]string, 0, len(results))
	for _, result := range results {
		ids = append(ids, result.ID)
	}

	batch, err := e.relationships.SelectRelationshipsBatch(ids, nil)
	if err != nil {
		e.logger.Warn("Relationship enrichment failed, returning unenriched results",
			slog.String("error", err.Error()))
		diagnostics.EnrichmentDegraded = true
		for _, result := range results {
			result.Relationships = []model.Relationship{}
		}
		return
	}

	for _, result := range results {
		relationships := batch[result.ID]
		if relationships == nil {
			relationships = []model.Relationship{}
		}
		result.Relationships = relationships
	}
}
