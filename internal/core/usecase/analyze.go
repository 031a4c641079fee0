package usecase

import (
	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

// Analyzer turns one extracted payload into a normalized
// DocumentAnalysisResult. It is pure with respect to its inputs: the same
// payload and proposer record always produce the same result, which makes
// reprocessing idempotent.
type Analyzer struct {
	categories []domain.HealthMetricCategory
	comparator ComparatorConfig
}

func NewAnalyzer(categories []domain.HealthMetricCategory, comparator ComparatorConfig) *Analyzer {
	return &Analyzer{
		categories: categories,
		comparator: comparator,
	}
}

func (a *Analyzer) Categories() []domain.HealthMetricCategory {
	return a.categories
}

// Analyze dispatches on document type: medical documents get range analysis
// plus taxonomy matching, everything else gets field comparison. A payload
// without the data its document type requires is a hard failure for that
// document.
func (a *Analyzer) Analyze(doc *domain.Document, payload *domain.ExtractedPayload, proposer *domain.ProposerRecord) domain.DocumentAnalysisResult {
	result := domain.DocumentAnalysisResult{
		DocumentID:   doc.ID,
		DocumentType: doc.DocumentType,
	}
	if payload.Empty() {
		result.Error = "empty extracted payload"
		return result
	}

	if doc.DocumentType.IsMedical() {
		return a.analyzeMedical(result, payload, proposer)
	}
	return a.analyzeFinance(result, payload, proposer)
}

func (a *Analyzer) analyzeMedical(result domain.DocumentAnalysisResult, payload *domain.ExtractedPayload, proposer *domain.ProposerRecord) domain.DocumentAnalysisResult {
	if len(payload.LabResults) == 0 {
		result.Error = "medical payload has no lab results"
		return result
	}

	categories, outOfRange := AnalyzeLabResults(a.categories, payload.LabResults)
	result.Categories = categories
	result.OutOfRange = outOfRange

	proposerName := ""
	if proposer != nil {
		proposerName = proposer.CustomerName
	}
	result.Identity = VerifyIdentity(payload.PatientInfo, proposerName)
	result.Success = true
	return result
}

func (a *Analyzer) analyzeFinance(result domain.DocumentAnalysisResult, payload *domain.ExtractedPayload, proposer *domain.ProposerRecord) domain.DocumentAnalysisResult {
	if proposer == nil {
		result.Error = "proposer record unavailable for comparison"
		return result
	}
	if payload.Fields == (domain.ExtractedFields{}) {
		result.Error = "payload has no extracted fields"
		return result
	}

	comparison := CompareFields(payload.Fields, proposer, a.comparator)
	result.Comparison = &comparison
	result.Success = true
	return result
}

// Validated reports the persisted validation flag for an analysis: the
// overall match for finance documents, the identity name check for medical
// ones.
func Validated(result domain.DocumentAnalysisResult) bool {
	if !result.Success {
		return false
	}
	if result.Comparison != nil {
		return result.Comparison.OverallMatch
	}
	if result.Identity != nil && result.Identity.NameMatch != nil {
		return *result.Identity.NameMatch
	}
	return false
}
