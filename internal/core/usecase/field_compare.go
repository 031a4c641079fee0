package usecase

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

// ComparatorConfig carries the two verification thresholds. The defaults come
// from the business rules in production; they are configuration, not
// recommendations.
type ComparatorConfig struct {
	// MatchThresholdPercent is the minimum field accuracy for an overall
	// match verdict.
	MatchThresholdPercent int
	// SalaryTolerance is the absolute currency difference still counted as a
	// salary match.
	SalaryTolerance float64
}

func DefaultComparatorConfig() ComparatorConfig {
	return ComparatorConfig{
		MatchThresholdPercent: 80,
		SalaryTolerance:       1000,
	}
}

// CompareFields verifies a document's extracted identity/financial fields
// against the declared proposer record. A field missing on either side is
// excluded from the total, not counted as a mismatch.
func CompareFields(extracted domain.ExtractedFields, proposer *domain.ProposerRecord, cfg ComparatorConfig) domain.FieldComparisonResult {
	result := domain.FieldComparisonResult{
		ComparisonResults: make(map[string]domain.FieldComparison),
	}
	if proposer == nil {
		result.Message = "Proposer record unavailable for comparison"
		return result
	}

	record := func(field string, match bool, got, want string) {
		result.ComparedFields++
		if match {
			result.MatchedFields++
		}
		result.ComparisonResults[field] = domain.FieldComparison{
			Match:     match,
			Extracted: got,
			Expected:  want,
		}
	}

	if extracted.Name != "" && proposer.CustomerName != "" {
		record("name", nameMatches(extracted.Name, proposer.CustomerName), extracted.Name, proposer.CustomerName)
	}
	if extracted.PANNumber != "" && proposer.PANNumber != "" {
		record("pan_number", extracted.PANNumber == proposer.PANNumber, extracted.PANNumber, proposer.PANNumber)
	}
	if extracted.DOB != "" && proposer.DOB != "" {
		// Exact textual equality; dates must already agree in format.
		record("dob", extracted.DOB == proposer.DOB, extracted.DOB, proposer.DOB)
	}
	if extracted.Salary != 0 && proposer.AnnualIncome != 0 {
		match := math.Abs(extracted.Salary-proposer.AnnualIncome) < cfg.SalaryTolerance
		record("salary", match, formatAmount(extracted.Salary), formatAmount(proposer.AnnualIncome))
	}

	accuracy := 0
	if result.ComparedFields > 0 {
		accuracy = int(math.Round(float64(result.MatchedFields) / float64(result.ComparedFields) * 100))
	}
	result.AccuracyMetrics = domain.AccuracyMetrics{OverallAccuracy: accuracy}
	result.OverallMatch = result.ComparedFields > 0 && accuracy >= cfg.MatchThresholdPercent
	result.ConfidenceScore = float64(accuracy) / 100

	if result.OverallMatch {
		result.Message = fmt.Sprintf("Document verified successfully with %d%% accuracy", accuracy)
	} else {
		result.Message = fmt.Sprintf("Document verification failed with %d%% accuracy", accuracy)
	}
	return result
}

// nameMatches is a case-insensitive containment test in either direction, not
// an edit distance. Containment holds for a raw substring or when one name's
// tokens are a subset of the other's, so "John Smith" matches "John A. Smith".
func nameMatches(extracted, declared string) bool {
	a := strings.ToLower(strings.TrimSpace(extracted))
	b := strings.ToLower(strings.TrimSpace(declared))
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return tokenSubset(nameTokens(a), nameTokens(b)) || tokenSubset(nameTokens(b), nameTokens(a))
}

func nameTokens(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func tokenSubset(subset, superset []string) bool {
	if len(subset) == 0 {
		return false
	}
	have := make(map[string]bool, len(superset))
	for _, tok := range superset {
		have[tok] = true
	}
	for _, tok := range subset {
		if !have[tok] {
			return false
		}
	}
	return true
}

// VerifyIdentity cross-checks a medical document's patient block against the
// proposer. Only the name is comparable; age/sex are reported but not scored.
func VerifyIdentity(patient *domain.PatientInfo, proposerName string) *domain.IdentityVerification {
	if patient == nil {
		return nil
	}

	v := &domain.IdentityVerification{
		PatientName:  patient.Name,
		ProposerName: proposerName,
	}

	if patient.Name != "" && proposerName != "" {
		match := nameMatches(patient.Name, proposerName)
		v.NameMatch = &match
		if !match {
			v.Issues = append(v.Issues, "Names do not match")
		}
	} else {
		v.Issues = append(v.Issues, "Missing name data for comparison")
	}

	checks, passed := 0, 0
	if v.NameMatch != nil {
		checks++
		if *v.NameMatch {
			passed++
		}
	}
	if checks > 0 {
		v.Confidence = int(math.Round(float64(passed) / float64(checks) * 100))
	}
	return v
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
