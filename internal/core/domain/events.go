package domain

// StatusEvent announces a per-document status change during a review run.
// Events are scoped to one proposer session; they replace broadcast-style
// global notification with an explicit channel.
// A run-level event carries no document id and Active=false marks the end
// of the run, whatever the reason.
type StatusEvent struct {
	ProposerID string           `json:"proposer_id"`
	DocumentID string           `json:"document_id,omitempty"`
	Status     ProcessingStatus `json:"status,omitempty"`
	Phase      string           `json:"phase,omitempty"`
	Processed  int              `json:"processed"`
	Total      int              `json:"total"`
	Active     bool             `json:"active"`
}
