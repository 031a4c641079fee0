package domain

import "encoding/json"

// HealthMetricCategory is one entry of the fixed clinical taxonomy. The
// sub-parameter list is static configuration; its length defines Total.
type HealthMetricCategory struct {
	ID            int      `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	SubParameters []string `json:"sub_parameters" yaml:"sub_parameters"`
	Total         int      `json:"total" yaml:"-"`
}

// ExtractedLabParameter is one test row from a medical document. Reference
// ranges arrive as free-form text or as a {"Normal": "..."} object.
type ExtractedLabParameter struct {
	TestName       string         `json:"test_name"`
	Value          string         `json:"value"`
	Unit           string         `json:"unit,omitempty"`
	ReferenceRange ReferenceRange `json:"reference_range"`
	Status         string         `json:"status,omitempty"`
}

// ReferenceRange tolerates both string and object encodings.
type ReferenceRange struct {
	Normal string `json:"Normal,omitempty"`
}

// UnmarshalJSON accepts the {"Normal": "..."} object as well as a bare string
// holding the whole range. Any other shape decodes to the empty range, which
// downstream reads as out of range, so one odd lab row never fails the whole
// payload.
func (r *ReferenceRange) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = ReferenceRange{Normal: s}
		return nil
	}

	type plain ReferenceRange
	var obj plain
	if err := json.Unmarshal(data, &obj); err != nil {
		*r = ReferenceRange{}
		return nil
	}
	*r = ReferenceRange(obj)
	return nil
}

const (
	LabStatusNormal     = "Normal"
	LabStatusOutOfRange = "Out of Range"
)

// ParameterMatch binds one canonical sub-parameter to an extracted lab row.
type ParameterMatch struct {
	Name           string         `json:"name"`
	Value          string         `json:"value"`
	Unit           string         `json:"unit,omitempty"`
	ReferenceRange ReferenceRange `json:"reference_range"`
	Status         string         `json:"status"`
}

// CategoryAnalysis is the per-category matching outcome for one document:
// which canonical sub-parameters were found, against the fixed Total.
type CategoryAnalysis struct {
	CategoryID        int              `json:"category_id"`
	Title             string           `json:"title"`
	Total             int              `json:"total"`
	PresentParameters []ParameterMatch `json:"present_parameters"`
}

// Score is an aggregated percentage with its numerator and denominator.
// Score reads "N/A" when the denominator is empty.
type Score struct {
	Score      string `json:"score"`
	InRange    int    `json:"in_range"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
}
