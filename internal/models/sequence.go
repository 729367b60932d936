package models

import "time"

// Sequence names.
const (
	SequenceCirculationKick = "circulation_kick"
	SequenceDustKicker      = "dust_kicker"
)

// Sequence steps reported in SequenceState.Step.
const (
	StepIdle        = "IDLE"
	StepKicking     = "KICKING"
	StepFanOn       = "FAN_ON"
	StepWaitA       = "WAIT_A"
	StepPurifierMax = "PURIFIER_MAX"
	StepWaitB       = "WAIT_B"
	StepSilent      = "SILENT"
)

// SequenceState describes one timed sequence.
type SequenceState struct {
	Name            string     `json:"name"`
	Active          bool       `json:"active"`
	Step            string     `json:"step"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	LastCompletedAt *time.Time `json:"last_completed_at,omitempty"`
}
