package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"asthma_shield/internal/logger"
	"asthma_shield/internal/metrics"
	"asthma_shield/internal/models"
)

type DustKickerConfig struct {
	StirDelay   time.Duration
	ScrubPeriod time.Duration
}

// DustKicker stirs settled dust with the HVAC fan, scrubs it at full
// purifier speed and then drops back to silent. It only runs on request.
type DustKicker struct {
	cfg     DustKickerConfig
	coord   *Coordinator
	rec     *EventRecorder
	metrics *metrics.Metrics
	log     *logger.Logger
	guard   *sequenceGuard

	now   func() time.Time
	sleep sleepFunc
	wg    sync.WaitGroup
}

func NewDustKicker(cfg DustKickerConfig, coord *Coordinator, rec *EventRecorder, m *metrics.Metrics, log *logger.Logger) *DustKicker {
	if log == nil {
		log = logger.Nop()
	}
	return &DustKicker{
		cfg:     cfg,
		coord:   coord,
		rec:     rec,
		metrics: m,
		log:     log,
		guard:   newSequenceGuard(models.SequenceDustKicker),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func (d *DustKicker) State() models.SequenceState { return d.guard.State() }

// Active reports whether a run is in progress.
func (d *DustKicker) Active() bool { return d.guard.active() }

// Start launches a run in the background and returns immediately. A second
// start while active returns ErrSequenceActive and leaves the running
// instance untouched. ctx must outlive the whole run.
func (d *DustKicker) Start(ctx context.Context) error {
	if !d.guard.tryStart(d.now(), models.StepFanOn) {
		d.log.Warnw("sequence_rejected", "sequence", models.SequenceDustKicker)
		d.metrics.Sequence(models.SequenceDustKicker, seqRejected)
		d.rec.Record(ctx, models.EventSequenceRejected, "dust kicker already active", nil)
		return ErrSequenceActive
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(ctx)
	}()
	return nil
}

type dustStep struct {
	name   string
	action func(ctx context.Context) error
	wait   time.Duration
}

func (d *DustKicker) steps() []dustStep {
	return []dustStep{
		{name: models.StepFanOn, action: func(ctx context.Context) error {
			return d.coord.SetFanMode(ctx, models.FanOn)
		}},
		{name: models.StepWaitA, wait: d.cfg.StirDelay},
		{name: models.StepPurifierMax, action: func(ctx context.Context) error {
			return d.coord.SetPurifierSpeed(ctx, models.PurifierSpeedMax)
		}},
		{name: models.StepWaitB, wait: d.cfg.ScrubPeriod},
		{name: models.StepSilent, action: d.silent},
	}
}

// silent drops the purifier back to low and hands the HVAC fan back to the
// thermostat. Both commands are attempted even if the first fails.
func (d *DustKicker) silent(ctx context.Context) error {
	return errors.Join(
		d.coord.SetPurifierSpeed(ctx, models.PurifierSpeedLow),
		d.coord.SetFanMode(ctx, models.FanAuto),
	)
}

func (d *DustKicker) run(ctx context.Context) {
	defer d.guard.finish()

	d.log.Infow("dust_kicker_started")
	d.metrics.Sequence(models.SequenceDustKicker, seqStarted)
	d.rec.Record(ctx, models.EventSequenceStarted, "dust kicker started", nil)

	for _, step := range d.steps() {
		d.guard.setStep(step.name)
		if step.action == nil {
			if err := d.sleep(ctx, step.wait); err != nil {
				d.abort(step.name, err)
				return
			}
			continue
		}
		if err := step.action(ctx); err != nil {
			d.log.Errorw("dust_kicker_failed", "step", step.name, "err", err)
			d.metrics.Sequence(models.SequenceDustKicker, seqFailed)
			d.rec.Record(ctx, models.EventSequenceFailed, fmt.Sprintf("dust kicker failed at %s", step.name),
				map[string]any{"step": step.name, "error": err.Error()})
			return
		}
		d.log.Infow("dust_kicker_step", "step", step.name)
	}

	d.guard.markCompleted(d.now())
	d.log.Infow("dust_kicker_completed")
	d.metrics.Sequence(models.SequenceDustKicker, seqCompleted)
	d.rec.Record(ctx, models.EventSequenceCompleted, "dust kicker completed", nil)
}

// abort handles shutdown during a wait: the purifier and fan are dropped
// back to silent on a fresh context.
func (d *DustKicker) abort(step string, cause error) {
	d.guard.setStep(models.StepSilent)
	cctx, cancel := cleanupContext()
	defer cancel()
	if err := d.silent(cctx); err != nil {
		d.log.Warnw("dust_kicker_silent_failed", "err", err)
	}
	d.log.Infow("dust_kicker_aborted", "step", step, "reason", cause)
	d.metrics.Sequence(models.SequenceDustKicker, seqAborted)
}

// Wait blocks until a running cycle has returned.
func (d *DustKicker) Wait() { d.wg.Wait() }
