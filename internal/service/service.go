package service

import (
	"context"
	"time"

	"asthma_shield/internal/models"
	"asthma_shield/internal/repository"
)

// Authorization signs up operators and issues and checks their tokens.
type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Shield exposes the engine: status, state ingest, evaluation passes and the
// on-demand dust kicker.
type Shield interface {
	Status(ctx context.Context) models.Status
	UpdateState(ctx context.Context, u models.StateUpdate) (EvaluationResult, error)
	Evaluate(ctx context.Context) EvaluationResult
	TriggerDustKicker(ctx context.Context) error
}

// Actuators exposes manual commands routed through the coordinator.
type Actuators interface {
	SetPurifierSpeed(ctx context.Context, speed int) error
	SetPurifierLED(ctx context.Context, brightness int) error
	SetFanMode(ctx context.Context, mode models.FanMode) error
	SetDehumidifier(ctx context.Context, on bool) error
	State() models.ActuatorState
}

// EventLog exposes the audit trail with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.ShieldEvent, error)
}

// ControlLoop runs the periodic tick until ctx is canceled.
type ControlLoop interface {
	Run(ctx context.Context, tick time.Duration)
	Shutdown(ctx context.Context) error
}

// Service aggregates all sub-services.
type Service struct {
	Shield
	Actuators
	EventLog
	ControlLoop
	Authorization
}

// NewService wires the repository layer and the already built engine
// components into the aggregate.
func NewService(repos *repository.Repository, shield *ShieldService, coord *Coordinator, auth Authorization) *Service {
	return &Service{
		Shield:        shield,
		Actuators:     coord,
		EventLog:      NewEventLogService(repos.Events),
		ControlLoop:   shield,
		Authorization: auth,
	}
}
