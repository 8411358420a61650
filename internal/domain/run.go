package domain

import "time"

// RunStatus represents the outcome of one tenant run.
type RunStatus string

const (
	RunStatusProcessing RunStatus = "PROCESSING"
	RunStatusCompleted  RunStatus = "COMPLETED"
	RunStatusFailed     RunStatus = "FAILED"
)

func (s RunStatus) String() string { return string(s) }

func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusProcessing, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// Run records one end-to-end batch pass over a tenant.
type Run struct {
	ID         string
	ClientSlug string
	Status     RunStatus
	Contacts   int
	Targeted   int
	Drafted    int
	Error      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SendAttempt records a single connector send call for a message.
type SendAttempt struct {
	ID            string
	MessageID     string
	AttemptNumber int
	Transient     bool
	Error         *string
	CreatedAt     time.Time
}
