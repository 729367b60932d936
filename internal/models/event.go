package models

import "time"

// Event types written to the audit log.
const (
	EventCommand           = "COMMAND"
	EventCommandFailed     = "COMMAND_FAILED"
	EventSequenceStarted   = "SEQUENCE_STARTED"
	EventSequenceCompleted = "SEQUENCE_COMPLETED"
	EventSequenceFailed    = "SEQUENCE_FAILED"
	EventSequenceRejected  = "SEQUENCE_REJECTED"
	EventStateUpdate       = "STATE_UPDATE"
)

// ShieldEvent is a single audit log entry.
type ShieldEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Metadata    any       `json:"metadata,omitempty"`
}
