package device

import (
	"context"
	"time"

	"asthma_shield/internal/logger"
	"asthma_shield/internal/models"
)

// Sensors assembles an EnvironmentSnapshot from the live collaborators. A
// failed read leaves the affected fields nil; nothing is carried over from
// earlier snapshots.
type Sensors struct {
	climate ClimateReader
	air     AirQualityReader
	log     *logger.Logger
	now     func() time.Time
}

// NewSensors builds a reader over the thermostat and purifier telemetry.
func NewSensors(climate ClimateReader, air AirQualityReader, log *logger.Logger) *Sensors {
	if log == nil {
		log = logger.Nop()
	}
	return &Sensors{climate: climate, air: air, log: log, now: time.Now}
}

// ReadSensors never fails; unavailable readings are reported as nil and a
// missing occupancy reading leaves OccupancyKnown false.
func (s *Sensors) ReadSensors(ctx context.Context) models.EnvironmentSnapshot {
	snap := models.EnvironmentSnapshot{HVACMode: models.HVACOff, UpdatedAt: s.now().UTC()}

	if aq, err := s.air.ReadAirQuality(ctx); err != nil {
		s.log.Debugw("air_quality_unavailable", "err", err)
	} else {
		snap.PM25 = aq.PM25
		snap.TVOC = aq.TVOC
	}

	if cl, err := s.climate.ReadClimate(ctx); err != nil {
		s.log.Debugw("climate_unavailable", "err", err)
	} else {
		snap.IndoorTemp = cl.IndoorTemp
		snap.IndoorHumidity = cl.IndoorHumidity
		snap.OutdoorTemp = cl.OutdoorTemp
		if cl.Occupied != nil {
			snap.Occupied = *cl.Occupied
			snap.OccupancyKnown = true
		}
		if cl.HVACMode != "" {
			snap.HVACMode = cl.HVACMode
		}
		snap.HVACRunning = cl.HVACRunning
		snap.HVACFanRunning = cl.FanRunning
	}
	return snap
}
