package usecase

import (
	"sort"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

// CombineResults merges the per-document analyses of one proposer into a
// single view. Out-of-range parameters are keyed by name and accumulate every
// observed value with its source document index; per-category matches are
// unioned without duplicating a sub-parameter already present, so two lab
// reports mentioning ALBUMIN still yield one ALBUMIN slot.
func CombineResults(categories []domain.HealthMetricCategory, results []domain.DocumentAnalysisResult) *domain.CombinedResult {
	combined := &domain.CombinedResult{
		TotalDocuments: len(results),
		Categories:     make(map[int]*domain.CategoryAnalysis),
	}

	totals := make(map[int]domain.HealthMetricCategory, len(categories))
	for _, c := range categories {
		totals[c.ID] = c
	}

	merged := make(map[string]*domain.MergedParameter)
	var order []string

	for i, result := range results {
		if !result.Success {
			continue
		}
		combined.SuccessfulDocuments++

		for _, param := range result.OutOfRange {
			key := param.Parameter
			entry, ok := merged[key]
			if !ok {
				entry = &domain.MergedParameter{
					Parameter:      param.Parameter,
					ReferenceRange: param.ReferenceRange,
					Unit:           param.Unit,
				}
				merged[key] = entry
				order = append(order, key)
			}
			entry.Values = append(entry.Values, domain.ObservedValue{
				Value:         param.Value,
				DocumentIndex: i + 1,
			})
			entry.Count++
		}

		for id, analysis := range result.Categories {
			if analysis == nil {
				continue
			}
			target, ok := combined.Categories[id]
			if !ok {
				target = &domain.CategoryAnalysis{
					CategoryID: id,
					Title:      analysis.Title,
					Total:      analysis.Total,
				}
				if c, known := totals[id]; known {
					target.Title = c.Title
					target.Total = c.Total
				}
				combined.Categories[id] = target
			}
			for _, param := range analysis.PresentParameters {
				if hasParameter(target.PresentParameters, param.Name) {
					continue
				}
				target.PresentParameters = append(target.PresentParameters, param)
			}
		}
	}

	combined.OutOfRangeParams = make([]domain.MergedParameter, 0, len(order))
	for _, key := range order {
		combined.OutOfRangeParams = append(combined.OutOfRangeParams, *merged[key])
	}
	sortByTaxonomy(combined, totals)
	return combined
}

func hasParameter(params []domain.ParameterMatch, name string) bool {
	for _, p := range params {
		if p.Name == name {
			return true
		}
	}
	return false
}

// sortByTaxonomy restores the declared sub-parameter order inside each merged
// category so rendering and spreadsheet export stay stable regardless of
// document processing order.
func sortByTaxonomy(combined *domain.CombinedResult, totals map[int]domain.HealthMetricCategory) {
	for id, analysis := range combined.Categories {
		category, ok := totals[id]
		if !ok {
			continue
		}
		position := make(map[string]int, len(category.SubParameters))
		for i, name := range category.SubParameters {
			position[name] = i
		}
		sort.SliceStable(analysis.PresentParameters, func(i, j int) bool {
			return position[analysis.PresentParameters[i].Name] < position[analysis.PresentParameters[j].Name]
		})
	}
}
