package gap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/regraph/regraph/model"
)

// missingAspectSeverity is the fixed severity for an explicitly required but
// absent aspect.
const missingAspectSeverity = 0.8

// coverageTarget is the result count at which overall coverage saturates.
const coverageTarget = 5

// InconsistencyDetector optionally finds contradictions between results. The
// scorer works without one; detection failures degrade to "no inconsistencies
// found" rather than failing the scoring.
type InconsistencyDetector interface {
	Detect(ctx context.Context, results []*model.RetrievalResult) ([]model.Gap, error)
}

// Policy holds the thresholds downstream consumers apply to a gap report.
type Policy struct {
	MinCompleteness float64
	MaxGapSeverity  float64
}

// DefaultPolicy returns the standard sufficiency thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinCompleteness: 0.7,
		MaxGapSeverity:  0.8,
	}
}

// Sufficient reports whether the result set behind the report is good enough
// to reason over.
func (p Policy) Sufficient(report *model.GapReport) bool {
	if report.Completeness < p.MinCompleteness {
		return false
	}
	for _, g := range report.Gaps {
		if g.Severity > p.MaxGapSeverity {
			return false
		}
	}
	return true
}

// Scorer analyzes a retrieved result set for missing aspects and
// inconsistencies and condenses them into completeness and consistency
// scores.
type Scorer struct {
	detector InconsistencyDetector
	logger   *slog.Logger
}

// NewScorer creates a gap scorer. The detector may be nil.
func NewScorer(detector InconsistencyDetector, logger *slog.Logger) *Scorer {
	return &Scorer{
		detector: detector,
		logger:   logger,
	}
}

// Score inspects the results against the required aspects and produces a gap
// report.
//
// Completeness combines the mean weighted gap severity with the coverage
// metrics, clamped to [0, 1]; an empty gap list means completeness 1.0 (no
// evidence of incompleteness is treated as complete, not as unknown).
// Consistency is 1.0 when no inconsistency gaps exist, and 0.0 for an empty
// result set: nothing retrieved is nothing to be consistent about.
func (s *Scorer) Score(ctx context.Context, results []*model.RetrievalResult, requiredAspects []string) (*model.GapReport, error) {
	gaps := s.missingAspectGaps(results, requiredAspects)

	if s.detector != nil && len(results) >= 2 {
		inconsistencies, err := s.detector.Detect(ctx, results)
		if err != nil {
			s.logger.Warn("Inconsistency detection failed, scoring without it", slog.String("error", err.Error()))
		} else {
			gaps = append(gaps, inconsistencies...)
		}
	}

	coverage := coverageMetrics(results, requiredAspects)

	return &model.GapReport{
		Gaps:            gaps,
		Completeness:    completeness(gaps, coverage),
		Consistency:     consistency(results, gaps),
		CoverageMetrics: coverage,
		Timestamp:       time.Now().UTC(),
	}, nil
}

// missingAspectGaps emits one gap per required aspect not covered by any
// result.
func (s *Scorer) missingAspectGaps(results []*model.RetrievalResult, requiredAspects []string) []model.Gap {
	var gaps []model.Gap
	for _, aspect := range requiredAspects {
		if aspectCovered(results, aspect) {
			continue
		}
		gaps = append(gaps, model.Gap{
			Type:                model.GapTypeMissing,
			Description:         fmt.Sprintf("Missing required aspect: %s", aspect),
			Severity:            missingAspectSeverity,
			SuggestedResolution: fmt.Sprintf("Retrieve information about %s", aspect),
			Confidence:          1.0,
			Timestamp:           time.Now().UTC(),
		})
	}
	return gaps
}

// aspectCovered checks the aspect against result content and metadata values,
// case-insensitively.
func aspectCovered(results []*model.RetrievalResult, aspect string) bool {
	needle := strings.ToLower(aspect)
	for _, result := range results {
		if strings.Contains(strings.ToLower(result.Content), needle) {
			return true
		}
		for _, value := range result.Metadata {
			if text, ok := value.(string); ok && strings.Contains(strings.ToLower(text), needle) {
				return true
			}
		}
	}
	return false
}

func coverageMetrics(results []*model.RetrievalResult, requiredAspects []string) map[string]float64 {
	metrics := map[string]float64{
		"overall_coverage":          0.0,
		"required_aspects_coverage": 0.0,
		"temporal_coverage":         0.0,
		"domain_coverage":           0.0,
	}
	if len(results) == 0 {
		if len(requiredAspects) == 0 {
			metrics["required_aspects_coverage"] = 1.0
		}
		return metrics
	}

	metrics["overall_coverage"] = clamp(float64(len(results)) / coverageTarget)

	if len(requiredAspects) == 0 {
		metrics["required_aspects_coverage"] = 1.0
	} else {
		covered := 0
		for _, aspect := range requiredAspects {
			if aspectCovered(results, aspect) {
				covered++
			}
		}
		metrics["required_aspects_coverage"] = float64(covered) / float64(len(requiredAspects))
	}

	dated := 0
	sources := map[string]bool{}
	for _, result := range results {
		if result.Metadata.String("publication_date") != "" {
			dated++
		}
		if source := result.Metadata.String("source"); source != "" {
			sources[source] = true
		}
	}
	metrics["temporal_coverage"] = float64(dated) / float64(len(results))
	metrics["domain_coverage"] = float64(len(sources)) / float64(len(results))

	return metrics
}

func completeness(gaps []model.Gap, coverage map[string]float64) float64 {
	if len(gaps) == 0 {
		return 1.0
	}

	weightedImpact := 0.0
	for _, g := range gaps {
		weightedImpact += g.Severity * g.Confidence
	}
	weightedImpact /= float64(len(gaps))

	return clamp((1-weightedImpact)*0.6 +
		coverage["overall_coverage"]*0.2 +
		coverage["required_aspects_coverage"]*0.2)
}

func consistency(results []*model.RetrievalResult, gaps []model.Gap) float64 {
	if len(results) == 0 {
		return 0.0
	}

	var inconsistencies []model.Gap
	for _, g := range gaps {
		if g.Type == model.GapTypeInconsistent {
			inconsistencies = append(inconsistencies, g)
		}
	}
	if len(inconsistencies) == 0 {
		return 1.0
	}

	weighted := 0.0
	for _, g := range inconsistencies {
		weighted += g.Severity * g.Confidence
	}
	return clamp(1.0 - weighted/float64(len(inconsistencies)))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
