package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"asthma_shield/internal/models"
)

// ErrSequenceActive rejects a start while the same sequence is running.
var ErrSequenceActive = errors.New("sequence already active")

// cleanupTimeout bounds the best-effort commands issued after shutdown.
const cleanupTimeout = 5 * time.Second

// Sequence outcomes for metrics.
const (
	seqStarted   = "started"
	seqCompleted = "completed"
	seqFailed    = "failed"
	seqRejected  = "rejected"
	seqAborted   = "aborted"
)

type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cleanupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), cleanupTimeout)
}

// sequenceGuard is the reentry guard and observable state of one sequence.
type sequenceGuard struct {
	mu sync.Mutex
	st models.SequenceState
}

func newSequenceGuard(name string) *sequenceGuard {
	return &sequenceGuard{st: models.SequenceState{Name: name, Step: models.StepIdle}}
}

// tryStart marks the sequence active unless it already is.
func (g *sequenceGuard) tryStart(now time.Time, step string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.st.Active {
		return false
	}
	started := now.UTC()
	g.st.Active = true
	g.st.Step = step
	g.st.StartedAt = &started
	return true
}

func (g *sequenceGuard) setStep(step string) {
	g.mu.Lock()
	g.st.Step = step
	g.mu.Unlock()
}

func (g *sequenceGuard) markCompleted(at time.Time) {
	at = at.UTC()
	g.mu.Lock()
	g.st.LastCompletedAt = &at
	g.mu.Unlock()
}

// finish returns the sequence to IDLE. It runs on every exit path.
func (g *sequenceGuard) finish() {
	g.mu.Lock()
	g.st.Active = false
	g.st.Step = models.StepIdle
	g.st.StartedAt = nil
	g.mu.Unlock()
}

func (g *sequenceGuard) active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st.Active
}

func (g *sequenceGuard) lastCompleted() *time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.st.LastCompletedAt == nil {
		return nil
	}
	t := *g.st.LastCompletedAt
	return &t
}

// State returns a copy safe to hand out.
func (g *sequenceGuard) State() models.SequenceState {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := g.st
	if g.st.StartedAt != nil {
		t := *g.st.StartedAt
		out.StartedAt = &t
	}
	if g.st.LastCompletedAt != nil {
		t := *g.st.LastCompletedAt
		out.LastCompletedAt = &t
	}
	return out
}
