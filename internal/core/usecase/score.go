package usecase

import (
	"fmt"
	"math"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

const scoreNotAvailable = "N/A"

// HealthScore aggregates the category analyses into an overall percentage.
// Only categories with at least one detected parameter count; for those, the
// denominator is the category's full declared sub-parameter total. The score
// therefore grows with what was detected, not with the whole taxonomy, so a
// document set that never tests a category is not penalized for it.
func HealthScore(categories map[int]*domain.CategoryAnalysis) domain.Score {
	inRange, total := 0, 0
	for _, analysis := range categories {
		if analysis == nil || len(analysis.PresentParameters) == 0 {
			continue
		}
		total += analysis.Total
		for _, param := range analysis.PresentParameters {
			if param.Status == domain.LabStatusNormal {
				inRange++
			}
		}
	}
	return buildScore(inRange, total)
}

// FinanceScore aggregates field comparisons across all successfully analyzed
// finance documents: matched fields over compared fields.
func FinanceScore(results []domain.DocumentAnalysisResult) domain.Score {
	matched, compared := 0, 0
	for _, r := range results {
		if !r.Success || r.Comparison == nil {
			continue
		}
		matched += r.Comparison.MatchedFields
		compared += r.Comparison.ComparedFields
	}
	return buildScore(matched, compared)
}

func buildScore(inRange, total int) domain.Score {
	if total == 0 {
		return domain.Score{Score: scoreNotAvailable}
	}
	pct := int(math.Round(float64(inRange) / float64(total) * 100))
	return domain.Score{
		Score:      fmt.Sprintf("%d%%", pct),
		InRange:    inRange,
		Total:      total,
		Percentage: pct,
	}
}
