package models

import "strings"

// FanMode is the thermostat fan setting.
type FanMode string

const (
	FanAuto FanMode = "auto"
	FanOn   FanMode = "on"
)

// ParseFanMode normalizes a fan mode string.
func ParseFanMode(s string) (FanMode, bool) {
	switch m := FanMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FanAuto, FanOn:
		return m, true
	default:
		return FanAuto, false
	}
}

// Purifier speed and LED bounds.
const (
	PurifierSpeedOff    = 0
	PurifierSpeedLow    = 1
	PurifierSpeedMedium = 2
	PurifierSpeedMax    = 3

	LEDOff = 0
	LEDMax = 100
)

// ActuatorState is the last commanded state of every actuator. It is not
// necessarily confirmed by hardware.
type ActuatorState struct {
	PurifierSpeed         int     `json:"purifier_speed"`
	PurifierLEDBrightness int     `json:"purifier_led_brightness"`
	DehumidifierOn        bool    `json:"dehumidifier_on"`
	ThermostatFanMode     FanMode `json:"thermostat_fan_mode"`
}

// DefaultActuatorState is what the coordinator assumes before it has issued
// any command.
func DefaultActuatorState() ActuatorState {
	return ActuatorState{
		PurifierSpeed:         PurifierSpeedOff,
		PurifierLEDBrightness: LEDMax,
		DehumidifierOn:        false,
		ThermostatFanMode:     FanAuto,
	}
}
