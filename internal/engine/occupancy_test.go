package engine

import (
	"testing"

	"asthma_shield/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func occ(v bool) *bool { return &v }

func TestEvaluateOccupancy(t *testing.T) {
	t.Run("arrival enters whisper", func(t *testing.T) {
		for _, from := range []NoiseMode{NoiseIdle, NoiseTurbo} {
			d := EvaluateOccupancy(occ(true), from)
			require.True(t, d.Command, from.String())
			require.NotNil(t, d.LEDBrightness)
			require.NotNil(t, d.PurifierSpeed)
			assert.Equal(t, models.LEDOff, *d.LEDBrightness)
			assert.Equal(t, models.PurifierSpeedLow, *d.PurifierSpeed)
			assert.Nil(t, d.SpeedFloor)
			assert.Equal(t, NoiseWhisper, d.Next)
		}
	})

	t.Run("departure goes turbo", func(t *testing.T) {
		d := EvaluateOccupancy(occ(false), NoiseWhisper)
		require.True(t, d.Command)
		assert.Nil(t, d.LEDBrightness)
		require.NotNil(t, d.PurifierSpeed)
		assert.Equal(t, models.PurifierSpeedMax, *d.PurifierSpeed)
		assert.Equal(t, NoiseTurbo, d.Next)
	})

	t.Run("turbo holds max speed while vacant", func(t *testing.T) {
		d := EvaluateOccupancy(occ(false), NoiseTurbo)
		assert.False(t, d.Command)
		require.NotNil(t, d.SpeedFloor)
		assert.Equal(t, models.PurifierSpeedMax, *d.SpeedFloor)
		assert.Equal(t, NoiseTurbo, d.Next)
	})

	t.Run("steady states issue nothing", func(t *testing.T) {
		for _, tc := range []struct {
			occupied bool
			mode     NoiseMode
		}{{true, NoiseWhisper}, {false, NoiseIdle}} {
			d := EvaluateOccupancy(occ(tc.occupied), tc.mode)
			assert.False(t, d.Command)
			assert.Nil(t, d.PurifierSpeed)
			assert.Nil(t, d.SpeedFloor)
			assert.Equal(t, tc.mode, d.Next)
		}
	})

	t.Run("unknown occupancy keeps the mode", func(t *testing.T) {
		for _, mode := range []NoiseMode{NoiseIdle, NoiseWhisper, NoiseTurbo} {
			d := EvaluateOccupancy(nil, mode)
			assert.False(t, d.Command, mode.String())
			assert.Nil(t, d.PurifierSpeed)
			assert.Equal(t, mode, d.Next)
		}
	})
}

func TestNoiseModeString(t *testing.T) {
	assert.Equal(t, "idle", NoiseIdle.String())
	assert.Equal(t, "whisper", NoiseWhisper.String())
	assert.Equal(t, "turbo", NoiseTurbo.String())
}
