package sqlite

import "time"

// Mutation outcomes
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeRejected  = "rejected" // refused locally, never sent
)

// MutationRecord is one assign / layout save / auto-assign attempt
type MutationRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Date      string    `json:"date"`
	Operation string    `json:"operation"` // "assign", "save_layout", "auto_assign"
	Payload   string    `json:"payload,omitempty"`
	Outcome   string    `json:"outcome"`
	Status    int       `json:"status"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
