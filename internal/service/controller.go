package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"asthma_shield/internal/device"
	"asthma_shield/internal/engine"
	"asthma_shield/internal/logger"
	"asthma_shield/internal/metrics"
	"asthma_shield/internal/models"
)

// Sensor sources.
const (
	SourceDevices  = "devices"
	SourceExternal = "external"
)

var (
	// ErrEmptyUpdate rejects a state update without any field.
	ErrEmptyUpdate = errors.New("state update carries no fields")
	// ErrInvalidState rejects a state update with an unknown value.
	ErrInvalidState = errors.New("invalid state update")
)

// noiseUnchanged is reported in Decisions when no noise cancellation
// transition was applied; otherwise the new engine.NoiseMode name is.
const noiseUnchanged = "unchanged"

// SensorReader produces a fresh snapshot from the live collaborators.
type SensorReader interface {
	ReadSensors(ctx context.Context) models.EnvironmentSnapshot
}

type ShieldConfig struct {
	Thresholds   engine.Thresholds
	SensorSource string
}

// Decisions summarizes what the evaluators concluded in one pass.
type Decisions struct {
	ThreatTier        string `json:"threat_tier"`
	InterlockRule     string `json:"interlock_rule"`
	InterlockReason   string `json:"interlock_reason"`
	NoiseCancellation string `json:"noise_cancellation"`
	DustKickerActive  bool   `json:"dust_kicker_active"`
}

// EvaluationResult is the outcome of one evaluation pass.
type EvaluationResult struct {
	Decisions Decisions       `json:"decisions"`
	Targets   engine.Targets  `json:"targets"`
	Commands  []CommandResult `json:"commands"`
	Status    models.Status   `json:"status"`
}

// ShieldService is the control loop: it samples sensors, evaluates the
// rules, drives the coordinator and schedules the timed sequences.
type ShieldService struct {
	cfg         ShieldConfig
	store       *StateStore
	sensors     SensorReader
	coord       *Coordinator
	circulation *CirculationKick
	dust        *DustKicker
	monitoring  *MonitoringService
	rec         *EventRecorder
	metrics     *metrics.Metrics
	log         *logger.Logger
	now         func() time.Time

	// evalMu keeps evaluation passes from interleaving.
	evalMu sync.Mutex
	noise  atomic.Int32 // engine.NoiseMode

	// seqCtx outlives requests and ticks; sequences run under it.
	seqCtx    context.Context
	seqCancel context.CancelFunc
}

// ShieldDeps are the collaborators a ShieldService is built from.
type ShieldDeps struct {
	Store         *StateStore
	Sensors       SensorReader
	Coordinator   *Coordinator
	Circulation   *CirculationKick
	DustKicker    *DustKicker
	Recorder      *EventRecorder
	Metrics       *metrics.Metrics
	Collaborators []device.Reporter
}

func NewShieldService(cfg ShieldConfig, deps ShieldDeps, log *logger.Logger) *ShieldService {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.SensorSource == "" {
		cfg.SensorSource = SourceDevices
	}
	s := &ShieldService{
		cfg:         cfg,
		store:       deps.Store,
		sensors:     deps.Sensors,
		coord:       deps.Coordinator,
		circulation: deps.Circulation,
		dust:        deps.DustKicker,
		rec:         deps.Recorder,
		metrics:     deps.Metrics,
		log:         log,
		now:         time.Now,
	}
	s.seqCtx, s.seqCancel = context.WithCancel(context.Background())
	s.monitoring = NewMonitoringService(s.store, s.coord, s.whisperActive,
		[]sequenceReporter{s.circulation, s.dust}, deps.Collaborators)
	return s
}

// Run ticks at the given interval until ctx is canceled. The first pass runs
// immediately.
func (s *ShieldService) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick samples the devices (when they are the sensor source) and runs one
// evaluation pass. Nothing in here is fatal.
func (s *ShieldService) Tick(ctx context.Context) EvaluationResult {
	if s.cfg.SensorSource == SourceDevices && s.sensors != nil {
		snap := s.sensors.ReadSensors(ctx)
		s.store.Replace(snap, s.now())
	}
	return s.evaluate(ctx)
}

// Evaluate runs one pass against the stored snapshot without sampling.
func (s *ShieldService) Evaluate(ctx context.Context) EvaluationResult {
	return s.evaluate(ctx)
}

// UpdateState merges an externally supplied partial snapshot and evaluates.
func (s *ShieldService) UpdateState(ctx context.Context, u models.StateUpdate) (EvaluationResult, error) {
	if u.Empty() {
		return EvaluationResult{}, ErrEmptyUpdate
	}
	if u.HVACMode != nil {
		if _, ok := models.ParseHVACMode(*u.HVACMode); !ok {
			return EvaluationResult{}, fmt.Errorf("%w: hvac_mode %q", ErrInvalidState, *u.HVACMode)
		}
	}
	if h := u.IndoorHumidity; h != nil && (*h < 0 || *h > 100) {
		return EvaluationResult{}, fmt.Errorf("%w: indoor_humidity %.1f outside 0..100", ErrInvalidState, *h)
	}
	if pm := u.PM25; pm != nil && *pm < 0 {
		return EvaluationResult{}, fmt.Errorf("%w: pm25 %.1f is negative", ErrInvalidState, *pm)
	}

	snap := s.store.Merge(u, s.now())
	s.rec.Record(ctx, models.EventStateUpdate, "state updated", map[string]any{
		"pm25":            snap.PM25,
		"indoor_humidity": snap.IndoorHumidity,
		"outdoor_temp":    snap.OutdoorTemp,
		"occupied":        snap.Occupied,
		"hvac_mode":       snap.HVACMode,
		"hvac_running":    snap.HVACRunning,
	})
	return s.evaluate(ctx), nil
}

func (s *ShieldService) noiseMode() engine.NoiseMode { return engine.NoiseMode(s.noise.Load()) }

func (s *ShieldService) whisperActive() bool { return s.noiseMode() == engine.NoiseWhisper }

// Status returns the current engine state.
func (s *ShieldService) Status(ctx context.Context) models.Status {
	return s.monitoring.Status(ctx)
}

// TriggerDustKicker starts the dust kicker under the service lifetime.
// It returns ErrSequenceActive if one is already running.
func (s *ShieldService) TriggerDustKicker(ctx context.Context) error {
	if err := s.seqCtx.Err(); err != nil {
		return fmt.Errorf("shield is shutting down: %w", err)
	}
	return s.dust.Start(s.seqCtx)
}

// Shutdown cancels running sequences and waits for their cleanup, bounded
// by ctx.
func (s *ShieldService) Shutdown(ctx context.Context) error {
	s.seqCancel()
	done := make(chan struct{})
	go func() {
		s.circulation.Wait()
		s.dust.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sequences: %w", ctx.Err())
	}
}

func (s *ShieldService) evaluate(ctx context.Context) EvaluationResult {
	s.evalMu.Lock()
	defer s.evalMu.Unlock()

	start := s.now()
	snap := s.store.Snapshot()
	plan := engine.BuildPlan(s.cfg.Thresholds, snap, s.coord.State(), s.noiseMode())

	targets := plan.Targets
	dustActive := s.dust.Active()
	if dustActive {
		targets = targets.WithoutAirflow()
	}

	applied := s.coord.Apply(ctx, targets)

	noise := noiseUnchanged
	if oc := plan.Occupancy; oc.Command {
		speedSent := oc.PurifierSpeed == nil || targets.PurifierSpeed != nil
		if speedSent && !applied.Failed(ActuatorPurifierSpeed, ActuatorPurifierLED) {
			s.noise.Store(int32(oc.Next))
			noise = oc.Next.String()
			s.log.Infow("noise_cancellation", "mode", noise)
		}
	}

	s.circulation.MaybeStart(s.seqCtx, snap.PM25)

	s.metrics.ObserveSensor("pm25", snap.PM25)
	s.metrics.ObserveSensor("tvoc", snap.TVOC)
	s.metrics.ObserveSensor("indoor_humidity", snap.IndoorHumidity)
	s.metrics.ObserveSensor("indoor_temp", snap.IndoorTemp)
	s.metrics.ObserveSensor("outdoor_temp", snap.OutdoorTemp)
	s.metrics.Tick(s.now().Sub(start))

	s.log.Infow("tick_done",
		"threat", plan.Threat.Tier,
		"interlock", plan.Humidity.Rule,
		"commands", len(applied.Commands),
		"dust_kicker", dustActive,
	)

	return EvaluationResult{
		Decisions: Decisions{
			ThreatTier:        plan.Threat.Tier,
			InterlockRule:     plan.Humidity.Rule,
			InterlockReason:   plan.Humidity.Reason,
			NoiseCancellation: noise,
			DustKickerActive:  dustActive,
		},
		Targets:  targets,
		Commands: applied.Commands,
		Status:   s.monitoring.Status(ctx),
	}
}
