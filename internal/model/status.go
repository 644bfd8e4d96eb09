package model

import "time"

type State string

const (
	StateIdle     State = "Idle"
	StateLastSent State = "Last sent"
	StateError    State = "Error"
)

// Status is a point-in-time view of an account's send history.
type Status struct {
	EntryID       string     `json:"entry_id"`
	Username      string     `json:"username"`
	State         State      `json:"state"`
	Attempts      int64      `json:"attempts"`
	SMSCount      int64      `json:"sms_count"`
	LastOutcome   Outcome    `json:"last_outcome,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LastSentAt    *time.Time `json:"last_sent,omitempty"`
}
