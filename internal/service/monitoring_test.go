package service

import (
	"context"
	"testing"
	"time"

	"asthma_shield/internal/device"
	"asthma_shield/internal/models"
)

type stubReporter struct{ st models.CollaboratorStatus }

func (s stubReporter) Status() models.CollaboratorStatus { return s.st }

func TestMonitoringService_Status_Baseline(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator()
	store := NewStateStore()
	svc := NewMonitoringService(store, c, nil, nil, nil)

	got := svc.Status(context.Background())

	if got.Actuators != models.DefaultActuatorState() {
		t.Fatalf("expected default actuator state, got %+v", got.Actuators)
	}
	if got.Environment.HVACMode != models.HVACOff {
		t.Fatalf("expected hvac off, got %q", got.Environment.HVACMode)
	}
	if !got.LastUpdate.IsZero() {
		t.Fatalf("expected zero last update, got %v", got.LastUpdate)
	}
	if got.WhisperActive {
		t.Fatal("whisper should be inactive without a source")
	}
	if got.Sequences == nil || len(got.Sequences) != 0 {
		t.Fatalf("expected empty non-nil sequences, got %#v", got.Sequences)
	}
}

func TestMonitoringService_Status_Collects(t *testing.T) {
	t.Parallel()

	c, _, _ := newTestCoordinator()
	store := NewStateStore()
	at := time.Date(2025, 2, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	store.Replace(models.EnvironmentSnapshot{PM25: models.Float(3)}, at)

	dust := NewDustKicker(DustKickerConfig{}, c, nil, nil, nil)
	kick := NewCirculationKick(CirculationConfig{}, c, nil, nil, nil)
	reporters := []device.Reporter{
		stubReporter{models.CollaboratorStatus{Name: "thermostat", Enabled: true, Detail: "connected"}},
		device.Disabled{Name: "relay", Reason: "no board"},
	}
	svc := NewMonitoringService(store, c, func() bool { return true }, []sequenceReporter{kick, dust}, reporters)

	got := svc.Status(context.Background())

	if got.LastUpdate.Location() != time.UTC || !got.LastUpdate.Equal(at) {
		t.Fatalf("last update not normalized: %v", got.LastUpdate)
	}
	if !got.WhisperActive {
		t.Fatal("expected whisper active")
	}
	if len(got.Sequences) != 2 || got.Sequences[0].Name != models.SequenceCirculationKick || got.Sequences[1].Name != models.SequenceDustKicker {
		t.Fatalf("unexpected sequences: %+v", got.Sequences)
	}
	if len(got.Collaborators) != 2 || got.Collaborators[1].Enabled {
		t.Fatalf("unexpected collaborators: %+v", got.Collaborators)
	}
}
