package engine

import "asthma_shield/internal/models"

// Targets are desired actuator states. Nil means "no opinion".
type Targets struct {
	PurifierSpeed  *int            `json:"purifier_speed,omitempty"`
	LEDBrightness  *int            `json:"purifier_led_brightness,omitempty"`
	FanMode        *models.FanMode `json:"thermostat_fan_mode,omitempty"`
	DehumidifierOn *bool           `json:"dehumidifier_on,omitempty"`
}

// Empty reports whether no target is set.
func (t Targets) Empty() bool {
	return t.PurifierSpeed == nil && t.LEDBrightness == nil && t.FanMode == nil && t.DehumidifierOn == nil
}

// WithoutAirflow drops purifier speed and fan mode, leaving LED and relay.
// Used while a timed sequence owns the airflow actuators.
func (t Targets) WithoutAirflow() Targets {
	t.PurifierSpeed = nil
	t.FanMode = nil
	return t
}

// Plan is the combined output of one evaluation pass.
type Plan struct {
	Threat    ThreatDecision    `json:"-"`
	Humidity  HumidityDecision  `json:"-"`
	Occupancy OccupancyDecision `json:"-"`
	Targets   Targets           `json:"targets"`
}

// BuildPlan runs the three evaluators against one snapshot and merges their
// targets. Purifier speed takes the higher of the threat and occupancy
// opinions so whisper mode never masks a dust event and turbo is not undone
// by a low threat tier.
func BuildPlan(th Thresholds, snap models.EnvironmentSnapshot, current models.ActuatorState, mode NoiseMode) Plan {
	p := Plan{
		Threat: EvaluateThreat(th, snap.PM25, snap.Occupied),
		Humidity: EvaluateHumidity(th, HumidityInput{
			IndoorHumidity: snap.IndoorHumidity,
			OutdoorTemp:    snap.OutdoorTemp,
			HVACMode:       snap.HVACMode,
			HVACRunning:    snap.HVACRunning,
			CurrentOn:      current.DehumidifierOn,
		}),
		Occupancy: EvaluateOccupancy(snap.Occupancy(), mode),
	}

	if p.Threat.Decided {
		speed := p.Threat.PurifierSpeed
		p.Targets.PurifierSpeed = &speed
		p.Targets.FanMode = p.Threat.FanMode
	}
	if p.Occupancy.Command {
		p.raiseSpeed(p.Occupancy.PurifierSpeed)
		p.Targets.LEDBrightness = p.Occupancy.LEDBrightness
	} else if p.Targets.PurifierSpeed != nil {
		// Only lifts an existing opinion; with no threat reading the
		// purifier is left where the transition put it.
		p.raiseSpeed(p.Occupancy.SpeedFloor)
	}

	on := p.Humidity.DesiredOn
	p.Targets.DehumidifierOn = &on
	return p
}

func (p *Plan) raiseSpeed(s *int) {
	if s == nil {
		return
	}
	if p.Targets.PurifierSpeed == nil || *s > *p.Targets.PurifierSpeed {
		speed := *s
		p.Targets.PurifierSpeed = &speed
	}
}
