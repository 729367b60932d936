package service

import (
	"context"
	"sync"
	"time"

	"asthma_shield/internal/logger"
	"asthma_shield/internal/metrics"
	"asthma_shield/internal/models"
)

type CirculationConfig struct {
	Enabled  bool
	Interval time.Duration
	Dwell    time.Duration
	PM25Max  float64
}

// CirculationKick runs the fan briefly once an hour while the air reads
// clean, so the purifier samples well-mixed air.
type CirculationKick struct {
	cfg     CirculationConfig
	coord   *Coordinator
	rec     *EventRecorder
	metrics *metrics.Metrics
	log     *logger.Logger
	guard   *sequenceGuard

	now   func() time.Time
	sleep sleepFunc
	wg    sync.WaitGroup
}

func NewCirculationKick(cfg CirculationConfig, coord *Coordinator, rec *EventRecorder, m *metrics.Metrics, log *logger.Logger) *CirculationKick {
	if log == nil {
		log = logger.Nop()
	}
	return &CirculationKick{
		cfg:     cfg,
		coord:   coord,
		rec:     rec,
		metrics: m,
		log:     log,
		guard:   newSequenceGuard(models.SequenceCirculationKick),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func (k *CirculationKick) State() models.SequenceState { return k.guard.State() }

// due applies the schedule: the first kick only at the top of an hour,
// later ones once Interval has passed since the last completed kick.
func (k *CirculationKick) due(now time.Time) bool {
	last := k.guard.lastCompleted()
	if last == nil {
		return now.Minute() == 0
	}
	return now.Sub(*last) >= k.cfg.Interval
}

// fanOnPending reports whether a run is active but has not yet recorded its
// fan-on, so the schedule cannot tell it apart from a missed kick.
func (k *CirculationKick) fanOnPending() bool {
	st := k.guard.State()
	if !st.Active || st.StartedAt == nil {
		return false
	}
	return st.LastCompletedAt == nil || st.LastCompletedAt.Before(*st.StartedAt)
}

// MaybeStart checks the schedule and the clean-air precondition, and starts
// the kick in its own goroutine when both hold. ctx must outlive the dwell.
func (k *CirculationKick) MaybeStart(ctx context.Context, pm25 *float64) bool {
	if !k.cfg.Enabled {
		return false
	}
	now := k.now()
	if k.fanOnPending() {
		k.log.Debugw("circulation_kick_pending")
		return false
	}
	if !k.due(now) {
		return false
	}
	if pm25 == nil || *pm25 >= k.cfg.PM25Max {
		k.log.Debugw("circulation_kick_skipped", "pm25", pm25)
		return false
	}
	if !k.guard.tryStart(now, models.StepKicking) {
		k.log.Warnw("sequence_rejected", "sequence", models.SequenceCirculationKick)
		k.metrics.Sequence(models.SequenceCirculationKick, seqRejected)
		k.rec.Record(ctx, models.EventSequenceRejected, "circulation kick already active", nil)
		return false
	}

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		k.run(ctx, now, *pm25)
	}()
	return true
}

func (k *CirculationKick) run(ctx context.Context, started time.Time, pm25 float64) {
	defer k.guard.finish()

	k.log.Infow("circulation_kick_started", "pm25", pm25)
	k.metrics.Sequence(models.SequenceCirculationKick, seqStarted)
	k.rec.Record(ctx, models.EventSequenceStarted, "circulation kick started", map[string]any{"pm25": pm25})

	if err := k.coord.SetFanMode(ctx, models.FanOn); err != nil {
		k.fail(ctx, "fan on", err)
		return
	}
	k.guard.markCompleted(started)

	if err := k.sleep(ctx, k.cfg.Dwell); err != nil {
		cctx, cancel := cleanupContext()
		defer cancel()
		if err := k.coord.SetFanMode(cctx, models.FanAuto); err != nil {
			k.log.Warnw("circulation_kick_revert_failed", "err", err)
		}
		k.log.Infow("circulation_kick_aborted", "reason", err)
		k.metrics.Sequence(models.SequenceCirculationKick, seqAborted)
		return
	}

	if err := k.coord.SetFanMode(ctx, models.FanAuto); err != nil {
		k.fail(ctx, "fan auto", err)
		return
	}
	k.log.Infow("circulation_kick_completed")
	k.metrics.Sequence(models.SequenceCirculationKick, seqCompleted)
	k.rec.Record(ctx, models.EventSequenceCompleted, "circulation kick completed", nil)
}

func (k *CirculationKick) fail(ctx context.Context, step string, err error) {
	k.log.Errorw("circulation_kick_failed", "step", step, "err", err)
	k.metrics.Sequence(models.SequenceCirculationKick, seqFailed)
	k.rec.Record(ctx, models.EventSequenceFailed, "circulation kick failed at "+step,
		map[string]any{"step": step, "error": err.Error()})
}

// Wait blocks until a running kick has returned.
func (k *CirculationKick) Wait() { k.wg.Wait() }
