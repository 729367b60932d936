package device

import (
	"context"
	"errors"
	"testing"
	"time"

	"asthma_shield/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClimate struct {
	c   Climate
	err error
}

func (s stubClimate) ReadClimate(context.Context) (Climate, error) { return s.c, s.err }

type stubAir struct {
	aq  AirQuality
	err error
}

func (s stubAir) ReadAirQuality(context.Context) (AirQuality, error) { return s.aq, s.err }

func TestDisabled_ReportsNotConfigured(t *testing.T) {
	d := Disabled{Name: "purifier", Reason: "no credentials"}
	ctx := context.Background()

	for _, err := range []error{
		d.SetSpeed(ctx, 1),
		d.SetLED(ctx, 0),
		d.SetFanMode(ctx, models.FanOn),
		d.Set(ctx, true),
	} {
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotConfigured)
		assert.ErrorIs(t, err, ErrDeviceUnavailable)
	}
	st := d.Status()
	assert.False(t, st.Enabled)
	assert.Equal(t, "purifier", st.Name)
}

func TestSensors_MergesReadings(t *testing.T) {
	occ := true
	s := NewSensors(
		stubClimate{c: Climate{
			IndoorTemp:     models.Float(71),
			IndoorHumidity: models.Float(52),
			OutdoorTemp:    models.Float(40),
			Occupied:       &occ,
			HVACMode:       models.HVACHeat,
			HVACRunning:    true,
		}},
		stubAir{aq: AirQuality{PM25: models.Float(3), TVOC: models.Float(120)}},
		nil,
	)
	fixed := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	snap := s.ReadSensors(context.Background())
	require.NotNil(t, snap.PM25)
	assert.Equal(t, 3.0, *snap.PM25)
	assert.Equal(t, 120.0, *snap.TVOC)
	assert.Equal(t, 52.0, *snap.IndoorHumidity)
	assert.True(t, snap.Occupied)
	assert.True(t, snap.OccupancyKnown)
	assert.Equal(t, models.HVACHeat, snap.HVACMode)
	assert.True(t, snap.HVACRunning)
	assert.Equal(t, fixed, snap.UpdatedAt)
}

func TestSensors_FailuresYieldNil(t *testing.T) {
	s := NewSensors(
		stubClimate{err: errors.New("mqtt down")},
		Disabled{Name: "purifier"},
		nil,
	)
	snap := s.ReadSensors(context.Background())
	assert.Nil(t, snap.PM25)
	assert.Nil(t, snap.TVOC)
	assert.Nil(t, snap.IndoorHumidity)
	assert.Nil(t, snap.OutdoorTemp)
	assert.False(t, snap.OccupancyKnown, "lost reading is not vacancy")
	assert.Nil(t, snap.Occupancy())
	assert.Equal(t, models.HVACOff, snap.HVACMode)
}
