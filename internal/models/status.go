package models

import "time"

// CollaboratorStatus reports whether a device collaborator is usable.
type CollaboratorStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Detail  string `json:"detail,omitempty"`
}

// Status is the full engine state exposed for status reporting.
type Status struct {
	Environment   EnvironmentSnapshot  `json:"environment"`
	Actuators     ActuatorState        `json:"actuators"`
	Sequences     []SequenceState      `json:"sequences"`
	WhisperActive bool                 `json:"noise_cancellation_active"`
	Collaborators []CollaboratorStatus `json:"collaborators,omitempty"`
	LastUpdate    time.Time            `json:"last_update,omitempty"`
}
