package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/aravindkv/underwriter-review/internal/core/domain"
)

const (
	sheetSummary    = "Summary"
	sheetHealth     = "Health Analysis"
	sheetOutOfRange = "Out of Range"
	sheetFinance    = "Field Comparison"
)

// ExcelExporter renders a review summary into a workbook the underwriter
// can attach to the case file.
type ExcelExporter struct{}

func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

func (e *ExcelExporter) Export(ctx context.Context, summary *domain.ReviewSummary) ([]byte, error) {
	if summary == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "report.export", fmt.Errorf("summary is nil"))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	f.SetSheetName("Sheet1", sheetSummary)
	if err := writeSummarySheet(f, summary); err != nil {
		return nil, err
	}
	if err := writeHealthSheet(f, summary); err != nil {
		return nil, err
	}
	if err := writeOutOfRangeSheet(f, summary); err != nil {
		return nil, err
	}
	if err := writeFinanceSheet(f, summary); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, summary *domain.ReviewSummary) error {
	rows := [][]any{}
	if p := summary.Proposer; p != nil {
		rows = append(rows,
			[]any{"Proposer", p.CustomerName},
			[]any{"Proposer ID", p.ProposerID},
			[]any{"PAN", p.PANNumber},
			[]any{"Date of Birth", p.DOB},
			[]any{"Annual Income", p.AnnualIncome},
		)
	}
	rows = append(rows,
		[]any{},
		[]any{"Health Score", summary.HealthScore.Score},
		[]any{"Finance Score", summary.FinanceScore.Score},
		[]any{},
		[]any{"Document", "Type", "Status", "Validated", "Error"},
	)
	for _, doc := range summary.Documents {
		name := doc.Name
		if name == "" {
			name = doc.DocumentID
		}
		rows = append(rows, []any{name, string(doc.DocumentType), string(doc.Status), doc.Validated, doc.Error})
	}
	return writeRows(f, sheetSummary, rows)
}

func writeHealthSheet(f *excelize.File, summary *domain.ReviewSummary) error {
	if _, err := f.NewSheet(sheetHealth); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetHealth, err)
	}

	rows := [][]any{{"Category", "Found", "Total", "Parameter", "Value", "Unit", "Status"}}
	if summary.Combined != nil {
		for _, category := range sortedCategories(summary.Combined.Categories) {
			rows = append(rows, []any{category.Title, len(category.PresentParameters), category.Total})
			for _, param := range category.PresentParameters {
				rows = append(rows, []any{"", "", "", param.Name, param.Value, param.Unit, param.Status})
			}
		}
	}
	return writeRows(f, sheetHealth, rows)
}

func writeOutOfRangeSheet(f *excelize.File, summary *domain.ReviewSummary) error {
	if _, err := f.NewSheet(sheetOutOfRange); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetOutOfRange, err)
	}

	rows := [][]any{{"Parameter", "Values", "Occurrences", "Reference Range", "Unit"}}
	if summary.Combined != nil {
		for _, param := range summary.Combined.OutOfRangeParams {
			values := make([]string, 0, len(param.Values))
			for _, v := range param.Values {
				values = append(values, fmt.Sprintf("%s (doc %d)", v.Value, v.DocumentIndex))
			}
			rows = append(rows, []any{
				param.Parameter,
				strings.Join(values, ", "),
				param.Count,
				param.ReferenceRange.Normal,
				param.Unit,
			})
		}
	}
	return writeRows(f, sheetOutOfRange, rows)
}

func writeFinanceSheet(f *excelize.File, summary *domain.ReviewSummary) error {
	if _, err := f.NewSheet(sheetFinance); err != nil {
		return fmt.Errorf("create sheet %s: %w", sheetFinance, err)
	}

	rows := [][]any{{"Document", "Field", "Extracted", "Expected", "Match"}}
	for _, result := range summary.Results {
		if result.Comparison == nil {
			continue
		}
		for _, field := range sortedFieldNames(result.Comparison.ComparisonResults) {
			cmp := result.Comparison.ComparisonResults[field]
			rows = append(rows, []any{result.DocumentID, field, cmp.Extracted, cmp.Expected, cmp.Match})
		}
	}
	return writeRows(f, sheetFinance, rows)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name for row %d: %w", i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func sortedCategories(categories map[int]*domain.CategoryAnalysis) []*domain.CategoryAnalysis {
	out := make([]*domain.CategoryAnalysis, 0, len(categories))
	for _, category := range categories {
		if category != nil {
			out = append(out, category)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out
}

func sortedFieldNames(results map[string]domain.FieldComparison) []string {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
