package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"asthma_shield/internal/engine"
	"asthma_shield/internal/models"
)

// fakeDevices implements the purifier, thermostat and relay, recording each
// call as "kind:value" (suffixed with "!" when it failed).
type fakeDevices struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func newFakeDevices() *fakeDevices { return &fakeDevices{fail: map[string]error{}} }

func (f *fakeDevices) SetSpeed(_ context.Context, speed int) error { return f.do("speed", speed) }
func (f *fakeDevices) SetLED(_ context.Context, b int) error       { return f.do("led", b) }
func (f *fakeDevices) SetFanMode(_ context.Context, m models.FanMode) error {
	return f.do("fan", m)
}
func (f *fakeDevices) Set(_ context.Context, on bool) error { return f.do("relay", on) }

func (f *fakeDevices) do(kind string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[kind]; err != nil {
		f.calls = append(f.calls, fmt.Sprintf("%s:%v!", kind, v))
		return err
	}
	f.calls = append(f.calls, fmt.Sprintf("%s:%v", kind, v))
	return nil
}

func (f *fakeDevices) setFail(kind string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, kind)
		return
	}
	f.fail[kind] = err
}

func (f *fakeDevices) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// purifierCalls filters Calls down to speed and LED commands.
func (f *fakeDevices) purifierCalls() []string {
	var out []string
	for _, c := range f.Calls() {
		if strings.HasPrefix(c, "speed:") || strings.HasPrefix(c, "led:") {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeDevices) reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// memEventRepo keeps appended events in memory.
type memEventRepo struct {
	mu     sync.Mutex
	events []models.ShieldEvent
}

func (r *memEventRepo) Append(_ context.Context, e models.ShieldEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *memEventRepo) List(context.Context, time.Time, time.Time, string) ([]models.ShieldEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.ShieldEvent(nil), r.events...), nil
}

func (r *memEventRepo) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func (r *memEventRepo) count(typ string) int {
	n := 0
	for _, t := range r.types() {
		if t == typ {
			n++
		}
	}
	return n
}

// gateSleep blocks each sleep until released or canceled, reporting the
// requested durations.
type gateSleep struct {
	calls   chan time.Duration
	release chan struct{}
}

func newGateSleep() *gateSleep {
	return &gateSleep{calls: make(chan time.Duration, 16), release: make(chan struct{}, 16)}
}

func (g *gateSleep) sleep(ctx context.Context, d time.Duration) error {
	g.calls <- d
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gateSleep) next(t *testing.T) time.Duration {
	t.Helper()
	select {
	case d := <-g.calls:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("sequence never reached a wait")
		return 0
	}
}

// instantSleep returns immediately and records durations.
type instantSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *instantSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *instantSleep) Waits() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.waits...)
}

type fakeSensors struct {
	snap models.EnvironmentSnapshot
}

func (f fakeSensors) ReadSensors(context.Context) models.EnvironmentSnapshot { return f.snap.Clone() }

type harness struct {
	dev    *fakeDevices
	repo   *memEventRepo
	coord  *Coordinator
	circ   *CirculationKick
	dust   *DustKicker
	store  *StateStore
	shield *ShieldService
}

func newHarness(t *testing.T, source string, sensors SensorReader) *harness {
	t.Helper()
	h := &harness{dev: newFakeDevices(), repo: &memEventRepo{}, store: NewStateStore()}
	rec := NewEventRecorder(h.repo, nil, nil)
	h.coord = NewCoordinator(h.dev, h.dev, h.dev, rec, nil, nil)
	h.circ = NewCirculationKick(CirculationConfig{Enabled: false}, h.coord, rec, nil, nil)
	h.dust = NewDustKicker(DustKickerConfig{StirDelay: 30 * time.Second, ScrubPeriod: 600 * time.Second}, h.coord, rec, nil, nil)
	h.shield = NewShieldService(ShieldConfig{Thresholds: engine.DefaultThresholds(), SensorSource: source}, ShieldDeps{
		Store:       h.store,
		Sensors:     sensors,
		Coordinator: h.coord,
		Circulation: h.circ,
		DustKicker:  h.dust,
		Recorder:    rec,
	}, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = h.shield.Shutdown(ctx)
	})
	return h
}
