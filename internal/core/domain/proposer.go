package domain

// ProposerRecord is the declared customer data used as ground truth for
// document verification. It is immutable for the duration of a review session.
type ProposerRecord struct {
	ProposerID   string  `json:"proposer_id"`
	CustomerName string  `json:"customer_name"`
	PANNumber    string  `json:"pan_number"`
	DOB          string  `json:"dob"`
	AnnualIncome float64 `json:"annual_income"`
	Phone        string  `json:"phone,omitempty"`
	AddressLine  string  `json:"address_line,omitempty"`
	City         string  `json:"city,omitempty"`
	State        string  `json:"state,omitempty"`
	Pincode      string  `json:"pincode,omitempty"`
}

// VerdictStatus is the final underwriting decision forwarded to the
// underwriting status service.
type VerdictStatus string

const (
	VerdictApproved     VerdictStatus = "Approved"
	VerdictRejected     VerdictStatus = "Rejected"
	VerdictInvestigate  VerdictStatus = "Needs Investigation"
)

func (s VerdictStatus) Valid() bool {
	switch s {
	case VerdictApproved, VerdictRejected, VerdictInvestigate:
		return true
	default:
		return false
	}
}
