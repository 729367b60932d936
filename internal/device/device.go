package device

import (
	"context"
	"errors"
	"fmt"

	"asthma_shield/internal/models"
)

var (
	// ErrDeviceUnavailable means the device could not be reached.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrCommandRejected means the device answered but refused the command.
	ErrCommandRejected = errors.New("command rejected")
	// ErrNotConfigured marks a collaborator disabled for the process lifetime.
	ErrNotConfigured = fmt.Errorf("%w: not configured", ErrDeviceUnavailable)
)

// Purifier is the air purifier actuator.
type Purifier interface {
	SetSpeed(ctx context.Context, speed int) error
	SetLED(ctx context.Context, brightness int) error
}

// Thermostat is the HVAC fan actuator.
type Thermostat interface {
	SetFanMode(ctx context.Context, mode models.FanMode) error
}

// Relay drives the dehumidifier.
type Relay interface {
	Set(ctx context.Context, on bool) error
}

// AirQuality is the purifier's live telemetry.
type AirQuality struct {
	PM25 *float64
	TVOC *float64
}

// AirQualityReader reads purifier telemetry.
type AirQualityReader interface {
	ReadAirQuality(ctx context.Context) (AirQuality, error)
}

// Climate is the thermostat's live telemetry, including its motion sensors.
type Climate struct {
	IndoorTemp     *float64
	IndoorHumidity *float64
	OutdoorTemp    *float64
	Occupied       *bool
	HVACMode       models.HVACMode
	HVACRunning    bool
	FanRunning     bool
}

// ClimateReader reads thermostat telemetry.
type ClimateReader interface {
	ReadClimate(ctx context.Context) (Climate, error)
}

// Reporter exposes a collaborator's health for the status endpoint.
type Reporter interface {
	Status() models.CollaboratorStatus
}

// Disabled stands in for a collaborator whose configuration is missing.
// Every call fails with ErrNotConfigured.
type Disabled struct {
	Name   string
	Reason string
}

var (
	_ Purifier         = Disabled{}
	_ Thermostat       = Disabled{}
	_ Relay            = Disabled{}
	_ AirQualityReader = Disabled{}
	_ ClimateReader    = Disabled{}
	_ Reporter         = Disabled{}
)

func (d Disabled) err() error {
	if d.Reason == "" {
		return fmt.Errorf("%s: %w", d.Name, ErrNotConfigured)
	}
	return fmt.Errorf("%s: %w (%s)", d.Name, ErrNotConfigured, d.Reason)
}

func (d Disabled) SetSpeed(context.Context, int) error                { return d.err() }
func (d Disabled) SetLED(context.Context, int) error                  { return d.err() }
func (d Disabled) SetFanMode(context.Context, models.FanMode) error   { return d.err() }
func (d Disabled) Set(context.Context, bool) error                    { return d.err() }
func (d Disabled) ReadAirQuality(context.Context) (AirQuality, error) { return AirQuality{}, d.err() }
func (d Disabled) ReadClimate(context.Context) (Climate, error)       { return Climate{}, d.err() }

// Status reports the collaborator as disabled.
func (d Disabled) Status() models.CollaboratorStatus {
	return models.CollaboratorStatus{Name: d.Name, Enabled: false, Detail: d.Reason}
}
