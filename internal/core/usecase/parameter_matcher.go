package usecase

import (
	"regexp"
	"strings"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

// Lab reports name the same test inconsistently: abbreviations, parenthetical
// qualifiers, alternate spellings. The matcher decides, per canonical
// sub-parameter, whether an extracted test row refers to it.

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	nonWordRe       = regexp.MustCompile(`[^\w\s]`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// NormalizeParameterName lower-cases, drops parenthetical content, replaces
// punctuation with spaces and collapses whitespace.
func NormalizeParameterName(name string) string {
	s := strings.ToLower(name)
	s = parentheticalRe.ReplaceAllString(s, "")
	s = nonWordRe.ReplaceAllString(s, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// abbreviationPairs are domain equivalences checked both ways after exact and
// substring matching fail.
var abbreviationPairs = [][2]string{
	{"hb", "haemoglobin"},
	{"esr", "westergren"},
	{"rbc", "red blood cell"},
	{"absolute counts", "absolute"},
}

func namesEquivalent(canonical, extracted string) bool {
	if canonical == extracted {
		return true
	}
	// Dotted abbreviations normalize to spaced letters ("E.S.R." -> "e s r"),
	// so compare compacted forms too.
	if strings.ReplaceAll(canonical, " ", "") == strings.ReplaceAll(extracted, " ", "") {
		return true
	}
	// Substring either way, guarded against accidental hits on short tokens.
	if strings.Contains(extracted, canonical) && len(canonical) > 2 {
		return true
	}
	if strings.Contains(canonical, extracted) && len(extracted) > 2 {
		return true
	}
	for _, pair := range abbreviationPairs {
		if strings.Contains(canonical, pair[0]) && strings.Contains(extracted, pair[1]) {
			return true
		}
		if strings.Contains(canonical, pair[1]) && strings.Contains(extracted, pair[0]) {
			return true
		}
	}
	return false
}

// MatchCategory binds each canonical sub-parameter of one category to at most
// one extracted lab row. The scan stops at the first hit per sub-parameter so
// multiple plausible rows never double count.
func MatchCategory(category domain.HealthMetricCategory, results []domain.ExtractedLabParameter) *domain.CategoryAnalysis {
	analysis := &domain.CategoryAnalysis{
		CategoryID: category.ID,
		Title:      category.Title,
		Total:      category.Total,
	}

	normalized := make([]string, len(results))
	for i, r := range results {
		normalized[i] = NormalizeParameterName(r.TestName)
	}

	for _, subParam := range category.SubParameters {
		canonical := NormalizeParameterName(subParam)
		for i, r := range results {
			if !namesEquivalent(canonical, normalized[i]) {
				continue
			}
			analysis.PresentParameters = append(analysis.PresentParameters, domain.ParameterMatch{
				Name:           subParam,
				Value:          r.Value,
				Unit:           r.Unit,
				ReferenceRange: r.ReferenceRange,
				Status:         classifyLabStatus(r),
			})
			break
		}
	}
	return analysis
}

// classifyLabStatus trusts a precomputed Normal status and otherwise consults
// the range classifier.
func classifyLabStatus(r domain.ExtractedLabParameter) string {
	if strings.EqualFold(r.Status, domain.LabStatusNormal) {
		return domain.LabStatusNormal
	}
	if InNormalRange(r.Value, r.ReferenceRange) {
		return domain.LabStatusNormal
	}
	return domain.LabStatusOutOfRange
}

// AnalyzeLabResults runs the matcher over the whole taxonomy and collects the
// out-of-range rows observed in the document.
func AnalyzeLabResults(categories []domain.HealthMetricCategory, results []domain.ExtractedLabParameter) (map[int]*domain.CategoryAnalysis, []domain.OutOfRangeParameter) {
	byCategory := make(map[int]*domain.CategoryAnalysis, len(categories))
	for _, category := range categories {
		byCategory[category.ID] = MatchCategory(category, results)
	}

	var outOfRange []domain.OutOfRangeParameter
	for _, r := range results {
		if classifyLabStatus(r) == domain.LabStatusNormal {
			continue
		}
		outOfRange = append(outOfRange, domain.OutOfRangeParameter{
			Parameter:      r.TestName,
			Value:          r.Value,
			Unit:           r.Unit,
			ReferenceRange: r.ReferenceRange,
		})
	}
	return byCategory, outOfRange
}
