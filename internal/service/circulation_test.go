package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"asthma_shield/internal/device"
	"asthma_shield/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type kickFixture struct {
	kick  *CirculationKick
	dev   *fakeDevices
	repo  *memEventRepo
	gate  *gateSleep
	clock *time.Time
}

func newKickFixture(t *testing.T, interval time.Duration, at time.Time) *kickFixture {
	t.Helper()
	c, dev, repo := newTestCoordinator()
	f := &kickFixture{dev: dev, repo: repo, gate: newGateSleep(), clock: &at}
	f.kick = NewCirculationKick(CirculationConfig{
		Enabled:  true,
		Interval: interval,
		Dwell:    300 * time.Second,
		PM25Max:  2,
	}, c, NewEventRecorder(repo, nil, nil), nil, nil)
	f.kick.now = func() time.Time { return *f.clock }
	f.kick.sleep = f.gate.sleep
	return f
}

func (f *kickFixture) waitIdle(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return !f.kick.State().Active }, 2*time.Second, 5*time.Millisecond)
}

var topOfHour = time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

func TestCirculationKick_FirstRunOnlyAtTopOfHour(t *testing.T) {
	f := newKickFixture(t, time.Hour, topOfHour.Add(17*time.Minute))
	assert.False(t, f.kick.MaybeStart(context.Background(), models.Float(1)))
	assert.Empty(t, f.dev.Calls())
}

func TestCirculationKick_RunsAndReverts(t *testing.T) {
	f := newKickFixture(t, time.Hour, topOfHour)
	ctx := context.Background()

	require.True(t, f.kick.MaybeStart(ctx, models.Float(1.2)))
	assert.Equal(t, 300*time.Second, f.gate.next(t))

	st := f.kick.State()
	assert.True(t, st.Active)
	assert.Equal(t, models.StepKicking, st.Step)
	require.NotNil(t, st.LastCompletedAt)
	assert.Equal(t, topOfHour, *st.LastCompletedAt)

	f.gate.release <- struct{}{}
	f.waitIdle(t)

	assert.Equal(t, []string{"fan:on", "fan:auto"}, f.dev.Calls())
	assert.Equal(t, 1, f.repo.count(models.EventSequenceCompleted))
}

func TestCirculationKick_IntervalGate(t *testing.T) {
	f := newKickFixture(t, time.Hour, topOfHour)
	ctx := context.Background()

	require.True(t, f.kick.MaybeStart(ctx, models.Float(1)))
	f.gate.next(t)
	f.gate.release <- struct{}{}
	f.waitIdle(t)

	*f.clock = topOfHour.Add(59 * time.Minute)
	assert.False(t, f.kick.MaybeStart(ctx, models.Float(1)), "interval not elapsed")

	*f.clock = topOfHour.Add(60 * time.Minute)
	assert.True(t, f.kick.MaybeStart(ctx, models.Float(1)))
	f.gate.next(t)
	f.gate.release <- struct{}{}
	f.waitIdle(t)
}

func TestCirculationKick_SkipsWhenAirNotClean(t *testing.T) {
	f := newKickFixture(t, time.Hour, topOfHour)
	ctx := context.Background()

	assert.False(t, f.kick.MaybeStart(ctx, nil))
	assert.False(t, f.kick.MaybeStart(ctx, models.Float(2)))
	assert.False(t, f.kick.MaybeStart(ctx, models.Float(8)))
	assert.Nil(t, f.kick.State().LastCompletedAt)
	assert.Empty(t, f.dev.Calls())
}

func TestCirculationKick_FanFailureDoesNotRecord(t *testing.T) {
	f := newKickFixture(t, time.Hour, topOfHour)
	f.dev.setFail("fan", fmt.Errorf("mqtt: %w", device.ErrDeviceUnavailable))

	require.True(t, f.kick.MaybeStart(context.Background(), models.Float(1)))
	f.waitIdle(t)

	assert.Nil(t, f.kick.State().LastCompletedAt, "retry on the next tick")
	assert.Equal(t, 1, f.repo.count(models.EventSequenceFailed))
}

func TestCirculationKick_RejectsReentry(t *testing.T) {
	f := newKickFixture(t, 0, topOfHour)
	ctx := context.Background()

	require.True(t, f.kick.MaybeStart(ctx, models.Float(1)))
	f.gate.next(t)

	assert.False(t, f.kick.MaybeStart(ctx, models.Float(1)))
	assert.Equal(t, 1, f.repo.count(models.EventSequenceRejected))

	f.gate.release <- struct{}{}
	f.waitIdle(t)
	assert.Equal(t, []string{"fan:on", "fan:auto"}, f.dev.Calls())
}

// heldFan blocks fan-on commands until released.
type heldFan struct {
	*fakeDevices
	entered chan struct{}
	release chan struct{}
}

func (h heldFan) SetFanMode(ctx context.Context, m models.FanMode) error {
	if m == models.FanOn {
		h.entered <- struct{}{}
		<-h.release
	}
	return h.fakeDevices.SetFanMode(ctx, m)
}

func TestCirculationKick_TickDuringFanOnIsNotReentry(t *testing.T) {
	f := newKickFixture(t, time.Hour, topOfHour)
	fan := heldFan{fakeDevices: f.dev, entered: make(chan struct{}, 1), release: make(chan struct{})}
	f.kick.coord = NewCoordinator(f.dev, fan, f.dev, NewEventRecorder(f.repo, nil, nil), nil, nil)
	ctx := context.Background()

	require.True(t, f.kick.MaybeStart(ctx, models.Float(1)))
	<-fan.entered

	assert.False(t, f.kick.MaybeStart(ctx, models.Float(1)))
	assert.Zero(t, f.repo.count(models.EventSequenceRejected))

	close(fan.release)
	f.gate.next(t)
	f.gate.release <- struct{}{}
	f.waitIdle(t)
	assert.Equal(t, []string{"fan:on", "fan:auto"}, f.dev.Calls())
	assert.Zero(t, f.repo.count(models.EventSequenceRejected))
}

func TestCirculationKick_ShutdownRevertsFan(t *testing.T) {
	f := newKickFixture(t, time.Hour, topOfHour)
	ctx, cancel := context.WithCancel(context.Background())

	require.True(t, f.kick.MaybeStart(ctx, models.Float(1)))
	f.gate.next(t)
	cancel()
	f.kick.Wait()

	assert.Equal(t, []string{"fan:on", "fan:auto"}, f.dev.Calls())
	assert.False(t, f.kick.State().Active)
}

func TestCirculationKick_Disabled(t *testing.T) {
	f := newKickFixture(t, time.Hour, topOfHour)
	f.kick.cfg.Enabled = false
	assert.False(t, f.kick.MaybeStart(context.Background(), models.Float(1)))
}
