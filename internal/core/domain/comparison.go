package domain

// FieldComparison is the outcome for one identity/financial field.
type FieldComparison struct {
	Match     bool   `json:"match"`
	Extracted string `json:"extracted"`
	Expected  string `json:"expected"`
}

type AccuracyMetrics struct {
	OverallAccuracy int `json:"overall_accuracy"`
}

// FieldComparisonResult aggregates per-field outcomes for one document. Total
// counts only fields present on both the extracted and the declared side.
type FieldComparisonResult struct {
	ComparisonResults map[string]FieldComparison `json:"comparison_results"`
	OverallMatch      bool                       `json:"overall_match"`
	AccuracyMetrics   AccuracyMetrics            `json:"accuracy_metrics"`
	ConfidenceScore   float64                    `json:"confidence_score"`
	Message           string                     `json:"message"`
	ComparedFields    int                        `json:"compared_fields"`
	MatchedFields     int                        `json:"matched_fields"`
}

// IdentityVerification is the identity cross-check for a medical document,
// where only a patient name is available for comparison.
type IdentityVerification struct {
	NameMatch    *bool    `json:"name_match"`
	Confidence   int      `json:"confidence"`
	Issues       []string `json:"issues,omitempty"`
	PatientName  string   `json:"patient_name,omitempty"`
	ProposerName string   `json:"proposer_name,omitempty"`
}
