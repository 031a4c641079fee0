package domain

import (
	"encoding/json"
	"time"
)

type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusVerified   ProcessingStatus = "verified"
	StatusMismatch   ProcessingStatus = "mismatch"
	StatusError      ProcessingStatus = "error"
)

type DocumentType string

const (
	DocTypeBankStatement DocumentType = "bank_statement"
	DocTypeITR           DocumentType = "itr"
	DocTypePANCard       DocumentType = "pan_card"
	DocTypePayslip       DocumentType = "payslip"
	DocTypeGST           DocumentType = "gst"
	DocTypeMedicalReport DocumentType = "medical_report"
)

// Document is one uploaded file owned by the persistence service. The engine
// only reads and updates the extracted payload, the validated flag and the
// processing status.
type Document struct {
	ID           string           `json:"id"`
	ProposerID   string           `json:"proposer_id"`
	DocumentType DocumentType     `json:"document_type"`
	Name         string           `json:"name"`
	Extracted    *ExtractedPayload `json:"extracted_data,omitempty"`
	Validated    bool             `json:"validated"`
	Status       ProcessingStatus `json:"status"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// ExtractedPayload is the structured output of the external extraction
// service, as returned by POST /process-document/{id} and as persisted in the
// documents table.
type ExtractedPayload struct {
	DocumentType      string                     `json:"document_type,omitempty"`
	Fields            ExtractedFields            `json:"extracted_data"`
	LabResults        []ExtractedLabParameter    `json:"results,omitempty"`
	PatientInfo       *PatientInfo               `json:"patient_info,omitempty"`
	ComparisonResults map[string]FieldComparison `json:"comparison_results,omitempty"`
	OverallMatch      *bool                      `json:"overall_match,omitempty"`
	AccuracyMetrics   *AccuracyMetrics           `json:"accuracy_metrics,omitempty"`
	ProcessingTime    float64                    `json:"processing_time,omitempty"`
}

// ExtractedFields are the identity/financial values read off a finance
// document. Zero values mean the field was absent in the document.
type ExtractedFields struct {
	Name      string  `json:"name,omitempty"`
	PANNumber string  `json:"pan_number,omitempty"`
	DOB       string  `json:"dob,omitempty"`
	Salary    float64 `json:"salary,omitempty"`
}

// PatientInfo is the identity block of a medical report.
type PatientInfo struct {
	Name string `json:"Name,omitempty"`
	Age  string `json:"Age,omitempty"`
	Sex  string `json:"Sex,omitempty"`
}

func (d DocumentType) IsMedical() bool {
	return d == DocTypeMedicalReport
}

// Empty reports whether the payload carries no extracted content. A document
// is pending iff its payload is empty.
func (p *ExtractedPayload) Empty() bool {
	if p == nil {
		return true
	}
	return p.Fields == (ExtractedFields{}) &&
		len(p.LabResults) == 0 &&
		p.PatientInfo == nil &&
		len(p.ComparisonResults) == 0 &&
		p.OverallMatch == nil
}

// DeriveStatus recomputes the processing status from the stored payload alone,
// without re-calling the extraction service. It is the single source of truth
// for the pending -> processing -> {verified|mismatch|error} machine.
func DeriveStatus(doc *Document) ProcessingStatus {
	if doc == nil {
		return StatusPending
	}
	if doc.Error != "" {
		return StatusError
	}
	if doc.Extracted.Empty() {
		return StatusPending
	}
	if doc.Validated {
		return StatusVerified
	}
	if doc.Extracted.OverallMatch != nil && *doc.Extracted.OverallMatch {
		return StatusVerified
	}
	return StatusMismatch
}

// ParsePayload decodes a serialized payload as stored by the persistence
// service. Empty input yields a nil payload, not an error.
func ParsePayload(raw []byte) (*ExtractedPayload, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var payload ExtractedPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, WrapError(ErrInvalidInput, "parse extracted payload", err)
	}
	if payload.Empty() {
		return nil, nil
	}
	return &payload, nil
}
