package report

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

func sampleSummary() *domain.ReviewSummary {
	match := true
	return &domain.ReviewSummary{
		Proposer: &domain.ProposerRecord{
			ProposerID:   "prop-1",
			CustomerName: "Anita Rao",
			PANNumber:    "ABCDE1234F",
			AnnualIncome: 650000,
		},
		Documents: []domain.DocumentStatusView{
			{DocumentID: "doc-1", DocumentType: domain.DocTypeMedicalReport, Name: "Lab report", Status: domain.StatusVerified, Validated: true},
			{DocumentID: "doc-2", DocumentType: domain.DocTypePayslip, Status: domain.StatusMismatch},
		},
		Results: []domain.DocumentAnalysisResult{
			{
				DocumentID:   "doc-2",
				DocumentType: domain.DocTypePayslip,
				Success:      true,
				Comparison: &domain.FieldComparisonResult{
					ComparisonResults: map[string]domain.FieldComparison{
						"name":   {Match: true, Extracted: "Anita Rao", Expected: "Anita Rao"},
						"salary": {Match: false, Extracted: "45,000", Expected: "54,167"},
					},
					OverallMatch:    match,
					ComparedFields:  2,
					MatchedFields:   1,
					ConfidenceScore: 50,
				},
			},
		},
		Combined: &domain.CombinedResult{
			TotalDocuments:      2,
			SuccessfulDocuments: 2,
			OutOfRangeParams: []domain.MergedParameter{
				{
					Parameter:      "HAEMOGLOBIN (Hb)",
					Values:         []domain.ObservedValue{{Value: "9.2", DocumentIndex: 1}},
					Count:          1,
					ReferenceRange: domain.ReferenceRange{Normal: "13-17"},
					Unit:           "g/dL",
				},
			},
			Categories: map[int]*domain.CategoryAnalysis{
				1: {
					CategoryID: 1,
					Title:      "Blood Health",
					Total:      20,
					PresentParameters: []domain.ParameterMatch{
						{Name: "HAEMOGLOBIN (Hb)", Value: "9.2", Unit: "g/dL", Status: domain.LabStatusOutOfRange},
					},
				},
			},
		},
		HealthScore:  domain.Score{Score: "1/20", InRange: 1, Total: 20, Percentage: 5},
		FinanceScore: domain.Score{Score: "1/2", InRange: 1, Total: 2, Percentage: 50},
	}
}

func TestExportProducesWorkbookWithAllSheets(t *testing.T) {
	exporter := NewExcelExporter()
	data, err := exporter.Export(context.Background(), sampleSummary())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open exported workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	for _, sheet := range []string{sheetSummary, sheetHealth, sheetOutOfRange, sheetFinance} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Fatalf("missing sheet %q (idx=%d, err=%v)", sheet, idx, err)
		}
	}

	name, err := f.GetCellValue(sheetSummary, "B1")
	if err != nil {
		t.Fatalf("read proposer cell: %v", err)
	}
	if name != "Anita Rao" {
		t.Fatalf("unexpected proposer name cell: %q", name)
	}

	param, err := f.GetCellValue(sheetOutOfRange, "A2")
	if err != nil {
		t.Fatalf("read out-of-range cell: %v", err)
	}
	if param != "HAEMOGLOBIN (Hb)" {
		t.Fatalf("unexpected out-of-range parameter: %q", param)
	}
}

func TestExportRejectsNilSummary(t *testing.T) {
	exporter := NewExcelExporter()
	if _, err := exporter.Export(context.Background(), nil); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input, got %v", err)
	}
}
