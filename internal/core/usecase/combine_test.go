package usecase

import (
	"testing"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

func liverCategory() domain.HealthMetricCategory {
	return domain.HealthMetricCategory{
		ID:    2,
		Title: "Liver Health",
		SubParameters: []string{
			"ALBUMIN",
			"SGOT/AST",
			"SGPT/ALT",
			"GGTP",
			"ALKALINE PHOSPHATASE",
		},
		Total: 5,
	}
}

func liverAnalysis(params ...string) map[int]*domain.CategoryAnalysis {
	analysis := &domain.CategoryAnalysis{CategoryID: 2, Title: "Liver Health", Total: 5}
	for _, name := range params {
		analysis.PresentParameters = append(analysis.PresentParameters, domain.ParameterMatch{
			Name:   name,
			Status: domain.LabStatusNormal,
		})
	}
	return map[int]*domain.CategoryAnalysis{2: analysis}
}

func TestCombineResultsUnionsWithoutDuplicates(t *testing.T) {
	// Two lab reports cover different subsets of Liver Health; both mention
	// ALBUMIN. The union must hold each sub-parameter once.
	results := []domain.DocumentAnalysisResult{
		{
			DocumentID: "doc-1",
			Success:    true,
			Categories: liverAnalysis("ALBUMIN", "SGOT/AST", "SGPT/ALT"),
		},
		{
			DocumentID: "doc-2",
			Success:    true,
			Categories: liverAnalysis("ALBUMIN", "GGTP", "ALKALINE PHOSPHATASE"),
		},
	}

	combined := CombineResults([]domain.HealthMetricCategory{liverCategory()}, results)
	if combined.SuccessfulDocuments != 2 || combined.TotalDocuments != 2 {
		t.Fatalf("document counts = %d/%d, want 2/2", combined.SuccessfulDocuments, combined.TotalDocuments)
	}

	liver := combined.Categories[2]
	if liver == nil {
		t.Fatalf("liver category missing from combined result")
	}
	if len(liver.PresentParameters) != 5 {
		t.Fatalf("union size = %d, want 5", len(liver.PresentParameters))
	}
	if liver.Total != 5 {
		t.Fatalf("fixed total = %d, want 5", liver.Total)
	}

	albumins := 0
	for _, p := range liver.PresentParameters {
		if p.Name == "ALBUMIN" {
			albumins++
		}
	}
	if albumins != 1 {
		t.Fatalf("ALBUMIN appears %d times, want 1", albumins)
	}

	// Taxonomy order is restored after the merge.
	if liver.PresentParameters[0].Name != "ALBUMIN" || liver.PresentParameters[4].Name != "ALKALINE PHOSPHATASE" {
		t.Fatalf("unexpected parameter order: %+v", liver.PresentParameters)
	}
}

func TestCombineResultsMergesOutOfRangeByName(t *testing.T) {
	rr := domain.ReferenceRange{Normal: "13-17"}
	results := []domain.DocumentAnalysisResult{
		{
			DocumentID: "doc-1",
			Success:    true,
			OutOfRange: []domain.OutOfRangeParameter{
				{Parameter: "Haemoglobin", Value: "11.2", ReferenceRange: rr},
			},
		},
		{
			DocumentID: "doc-2",
			Success:    true,
			OutOfRange: []domain.OutOfRangeParameter{
				{Parameter: "Haemoglobin", Value: "10.9", ReferenceRange: rr},
			},
		},
	}

	combined := CombineResults(nil, results)
	if len(combined.OutOfRangeParams) != 1 {
		t.Fatalf("merged parameters = %d, want 1", len(combined.OutOfRangeParams))
	}
	merged := combined.OutOfRangeParams[0]
	if merged.Count != 2 || len(merged.Values) != 2 {
		t.Fatalf("merged count = %d values = %d, want 2/2", merged.Count, len(merged.Values))
	}
	if merged.Values[0].DocumentIndex != 1 || merged.Values[1].DocumentIndex != 2 {
		t.Fatalf("source document indices wrong: %+v", merged.Values)
	}
}

func TestCombineResultsSkipsFailedDocuments(t *testing.T) {
	results := []domain.DocumentAnalysisResult{
		{DocumentID: "doc-1", Success: false, Error: "extraction failed"},
		{DocumentID: "doc-2", Success: true, Categories: liverAnalysis("ALBUMIN")},
	}
	combined := CombineResults([]domain.HealthMetricCategory{liverCategory()}, results)
	if combined.SuccessfulDocuments != 1 {
		t.Fatalf("successful = %d, want 1", combined.SuccessfulDocuments)
	}
	if len(combined.Categories[2].PresentParameters) != 1 {
		t.Fatalf("failed document must not contribute parameters")
	}
}
