package service

import (
	"context"

	"asthma_shield/internal/device"
	"asthma_shield/internal/models"
)

// sequenceReporter is implemented by both timed sequences.
type sequenceReporter interface {
	State() models.SequenceState
}

// MonitoringService assembles the read-only status view.
type MonitoringService struct {
	store         *StateStore
	coord         *Coordinator
	sequences     []sequenceReporter
	collaborators []device.Reporter
	whisper       func() bool
}

func NewMonitoringService(store *StateStore, coord *Coordinator, whisper func() bool, sequences []sequenceReporter, collaborators []device.Reporter) *MonitoringService {
	return &MonitoringService{
		store:         store,
		coord:         coord,
		sequences:     sequences,
		collaborators: collaborators,
		whisper:       whisper,
	}
}

// Status returns the current snapshot, actuator state, sequence states and
// collaborator health.
func (s *MonitoringService) Status(_ context.Context) models.Status {
	st := models.Status{
		Environment: s.store.Snapshot(),
		Actuators:   s.coord.State(),
		Sequences:   make([]models.SequenceState, 0, len(s.sequences)),
		LastUpdate:  utc(s.store.LastUpdate()),
	}
	if s.whisper != nil {
		st.WhisperActive = s.whisper()
	}
	for _, seq := range s.sequences {
		st.Sequences = append(st.Sequences, seq.State())
	}
	for _, c := range s.collaborators {
		st.Collaborators = append(st.Collaborators, c.Status())
	}
	return st
}
