package domain

// DocumentAnalysisResult is the normalized per-document outcome. It is
// computed once per payload (on load or after extraction) and cached by
// document id, never re-derived on every read.
type DocumentAnalysisResult struct {
	DocumentID   string                     `json:"document_id"`
	DocumentType DocumentType               `json:"document_type"`
	Success      bool                       `json:"success"`
	FromStored   bool                       `json:"from_stored"`
	Comparison   *FieldComparisonResult     `json:"comparison,omitempty"`
	Categories   map[int]*CategoryAnalysis  `json:"categories,omitempty"`
	OutOfRange   []OutOfRangeParameter      `json:"out_of_range,omitempty"`
	Identity     *IdentityVerification      `json:"identity_verification,omitempty"`
	Error        string                     `json:"error,omitempty"`
}

// OutOfRangeParameter is one abnormal lab reading observed in a document.
type OutOfRangeParameter struct {
	Parameter      string         `json:"parameter"`
	Value          string         `json:"value"`
	Unit           string         `json:"unit,omitempty"`
	ReferenceRange ReferenceRange `json:"reference_range"`
}

// ObservedValue records one value of an out-of-range parameter together with
// the 1-based index of the document it came from.
type ObservedValue struct {
	Value         string `json:"value"`
	DocumentIndex int    `json:"document_index"`
}

// MergedParameter accumulates all observations of one out-of-range parameter
// across a proposer's documents.
type MergedParameter struct {
	Parameter      string          `json:"parameter"`
	Values         []ObservedValue `json:"values"`
	Count          int             `json:"count"`
	ReferenceRange ReferenceRange  `json:"reference_range"`
	Unit           string          `json:"unit,omitempty"`
}

// CombinedResult is the proposer-level union of all per-document analyses.
type CombinedResult struct {
	TotalDocuments      int                       `json:"total_documents"`
	SuccessfulDocuments int                       `json:"successful_documents"`
	OutOfRangeParams    []MergedParameter         `json:"out_of_range_params"`
	Categories          map[int]*CategoryAnalysis `json:"categories"`
}

// DocumentStatusView is the per-document line of the review screen.
type DocumentStatusView struct {
	DocumentID   string           `json:"document_id"`
	DocumentType DocumentType     `json:"document_type"`
	Name         string           `json:"name,omitempty"`
	Status       ProcessingStatus `json:"status"`
	Validated    bool             `json:"validated"`
	Error        string           `json:"error,omitempty"`
}

// ReviewSummary is the UI-facing view of one proposer's review: document
// statuses, the combined result and the aggregated scores.
type ReviewSummary struct {
	Proposer     *ProposerRecord          `json:"proposer"`
	Documents    []DocumentStatusView     `json:"documents"`
	Results      []DocumentAnalysisResult `json:"results"`
	Combined     *CombinedResult          `json:"combined"`
	HealthScore  Score                    `json:"health_score"`
	FinanceScore Score                    `json:"finance_score"`
}

// RunProgress is the observable state of one processing run.
type RunProgress struct {
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Phase     string `json:"phase"`
	Active    bool   `json:"active"`
}
