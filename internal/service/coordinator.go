package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"asthma_shield/internal/device"
	"asthma_shield/internal/engine"
	"asthma_shield/internal/logger"
	"asthma_shield/internal/metrics"
	"asthma_shield/internal/models"
)

// Actuator names used in events, metrics and command results.
const (
	ActuatorPurifierSpeed = "purifier_speed"
	ActuatorPurifierLED   = "purifier_led"
	ActuatorThermostatFan = "thermostat_fan"
	ActuatorDehumidifier  = "dehumidifier_relay"
)

// ErrInvalidTarget is returned for out-of-range actuator values.
var ErrInvalidTarget = errors.New("invalid actuator target")

// CommandResult is one command issued during an Apply.
type CommandResult struct {
	Actuator string `json:"actuator"`
	Value    any    `json:"value"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// ApplyResult lists the commands an Apply actually sent. Targets that
// already matched the last commanded state do not appear.
type ApplyResult struct {
	Commands []CommandResult `json:"commands"`
}

// Failed reports whether a command to any of the given actuators failed.
func (r ApplyResult) Failed(actuators ...string) bool {
	for _, c := range r.Commands {
		if c.OK {
			continue
		}
		for _, a := range actuators {
			if c.Actuator == a {
				return true
			}
		}
	}
	return false
}

func (r *ApplyResult) add(actuator string, value any, issued bool, err error) {
	if !issued && err == nil {
		return
	}
	cr := CommandResult{Actuator: actuator, Value: value, OK: err == nil}
	if err != nil {
		cr.Error = err.Error()
	}
	r.Commands = append(r.Commands, cr)
}

// Coordinator owns the last commanded ActuatorState. Commands to one
// actuator are serialized; state only moves when the device accepted the
// command.
type Coordinator struct {
	purifier   device.Purifier
	thermostat device.Thermostat
	relay      device.Relay
	rec        *EventRecorder
	metrics    *metrics.Metrics
	log        *logger.Logger

	stateMu sync.RWMutex
	state   models.ActuatorState

	speedMu sync.Mutex
	ledMu   sync.Mutex
	fanMu   sync.Mutex
	relayMu sync.Mutex
}

func NewCoordinator(p device.Purifier, t device.Thermostat, r device.Relay, rec *EventRecorder, m *metrics.Metrics, log *logger.Logger) *Coordinator {
	if log == nil {
		log = logger.Nop()
	}
	return &Coordinator{
		purifier:   p,
		thermostat: t,
		relay:      r,
		rec:        rec,
		metrics:    m,
		log:        log,
		state:      models.DefaultActuatorState(),
	}
}

// State returns the last commanded state.
func (c *Coordinator) State() models.ActuatorState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Apply brings every non-nil target in line with the last commanded state.
// Device failures are logged and recorded but not returned; the state for
// that actuator stays as it was. Collaborators that are not configured are
// skipped without an event.
func (c *Coordinator) Apply(ctx context.Context, t engine.Targets) ApplyResult {
	var res ApplyResult
	if t.PurifierSpeed != nil {
		issued, err := c.setPurifierSpeed(ctx, *t.PurifierSpeed)
		res.add(ActuatorPurifierSpeed, *t.PurifierSpeed, issued, err)
	}
	if t.LEDBrightness != nil {
		issued, err := c.setPurifierLED(ctx, *t.LEDBrightness)
		res.add(ActuatorPurifierLED, *t.LEDBrightness, issued, err)
	}
	if t.FanMode != nil {
		issued, err := c.setFanMode(ctx, *t.FanMode)
		res.add(ActuatorThermostatFan, *t.FanMode, issued, err)
	}
	if t.DehumidifierOn != nil {
		issued, err := c.setDehumidifier(ctx, *t.DehumidifierOn)
		res.add(ActuatorDehumidifier, *t.DehumidifierOn, issued, err)
	}
	return res
}

// SetPurifierSpeed commands the purifier fan speed (0..3).
func (c *Coordinator) SetPurifierSpeed(ctx context.Context, speed int) error {
	_, err := c.setPurifierSpeed(ctx, speed)
	return err
}

// SetPurifierLED commands the purifier LED brightness (0..100).
func (c *Coordinator) SetPurifierLED(ctx context.Context, brightness int) error {
	_, err := c.setPurifierLED(ctx, brightness)
	return err
}

// SetFanMode commands the thermostat fan mode.
func (c *Coordinator) SetFanMode(ctx context.Context, mode models.FanMode) error {
	_, err := c.setFanMode(ctx, mode)
	return err
}

// SetDehumidifier switches the dehumidifier relay.
func (c *Coordinator) SetDehumidifier(ctx context.Context, on bool) error {
	_, err := c.setDehumidifier(ctx, on)
	return err
}

func (c *Coordinator) setPurifierSpeed(ctx context.Context, speed int) (bool, error) {
	if speed < models.PurifierSpeedOff || speed > models.PurifierSpeedMax {
		return false, fmt.Errorf("%w: purifier speed %d outside 0..3", ErrInvalidTarget, speed)
	}
	return c.command(ctx, command{
		actuator: ActuatorPurifierSpeed,
		value:    speed,
		gauge:    float64(speed),
		mu:       &c.speedMu,
		same:     func(s models.ActuatorState) bool { return s.PurifierSpeed == speed },
		send:     func(ctx context.Context) error { return c.purifier.SetSpeed(ctx, speed) },
		commit:   func(s *models.ActuatorState) { s.PurifierSpeed = speed },
	})
}

func (c *Coordinator) setPurifierLED(ctx context.Context, brightness int) (bool, error) {
	if brightness < models.LEDOff || brightness > models.LEDMax {
		return false, fmt.Errorf("%w: led brightness %d outside 0..100", ErrInvalidTarget, brightness)
	}
	return c.command(ctx, command{
		actuator: ActuatorPurifierLED,
		value:    brightness,
		gauge:    float64(brightness),
		mu:       &c.ledMu,
		same:     func(s models.ActuatorState) bool { return s.PurifierLEDBrightness == brightness },
		send:     func(ctx context.Context) error { return c.purifier.SetLED(ctx, brightness) },
		commit:   func(s *models.ActuatorState) { s.PurifierLEDBrightness = brightness },
	})
}

func (c *Coordinator) setFanMode(ctx context.Context, mode models.FanMode) (bool, error) {
	mode, ok := models.ParseFanMode(string(mode))
	if !ok {
		return false, fmt.Errorf("%w: fan mode must be auto or on", ErrInvalidTarget)
	}
	return c.command(ctx, command{
		actuator: ActuatorThermostatFan,
		value:    mode,
		gauge:    boolGauge(mode == models.FanOn),
		mu:       &c.fanMu,
		same:     func(s models.ActuatorState) bool { return s.ThermostatFanMode == mode },
		send:     func(ctx context.Context) error { return c.thermostat.SetFanMode(ctx, mode) },
		commit:   func(s *models.ActuatorState) { s.ThermostatFanMode = mode },
	})
}

func (c *Coordinator) setDehumidifier(ctx context.Context, on bool) (bool, error) {
	return c.command(ctx, command{
		actuator: ActuatorDehumidifier,
		value:    on,
		gauge:    boolGauge(on),
		mu:       &c.relayMu,
		same:     func(s models.ActuatorState) bool { return s.DehumidifierOn == on },
		send:     func(ctx context.Context) error { return c.relay.Set(ctx, on) },
		commit:   func(s *models.ActuatorState) { s.DehumidifierOn = on },
	})
}

type command struct {
	actuator string
	value    any
	gauge    float64
	mu       *sync.Mutex
	same     func(models.ActuatorState) bool
	send     func(context.Context) error
	commit   func(*models.ActuatorState)
}

// command issues one device command unless the actuator is already in the
// requested state. It reports whether a command was sent.
func (c *Coordinator) command(ctx context.Context, cmd command) (bool, error) {
	cmd.mu.Lock()
	defer cmd.mu.Unlock()

	if cmd.same(c.State()) {
		return false, nil
	}

	meta := map[string]any{"actuator": cmd.actuator, "value": cmd.value}
	if err := cmd.send(ctx); err != nil {
		// A disabled collaborator fails every pass; that is not news.
		if errors.Is(err, device.ErrNotConfigured) {
			c.log.Debugw("command_skipped", "actuator", cmd.actuator, "value", cmd.value, "err", err)
			return false, err
		}
		c.log.Warnw("command_failed", "actuator", cmd.actuator, "value", cmd.value, "err", err)
		c.metrics.Command(cmd.actuator, false)
		meta["error"] = err.Error()
		c.rec.Record(ctx, models.EventCommandFailed, fmt.Sprintf("%s -> %v failed", cmd.actuator, cmd.value), meta)
		return true, err
	}

	c.stateMu.Lock()
	cmd.commit(&c.state)
	c.stateMu.Unlock()

	c.log.Infow("command_sent", "actuator", cmd.actuator, "value", cmd.value)
	c.metrics.Command(cmd.actuator, true)
	c.metrics.SetActuator(cmd.actuator, cmd.gauge)
	c.rec.Record(ctx, models.EventCommand, fmt.Sprintf("%s -> %v", cmd.actuator, cmd.value), meta)
	return true, nil
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
