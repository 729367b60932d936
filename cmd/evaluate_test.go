package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asthma_shield/internal/engine"
	"asthma_shield/internal/models"
)

func runEvaluate(t *testing.T, args ...string) evaluateOutput {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"evaluate"}, args...))
	require.NoError(t, root.Execute(), out.String())

	var res evaluateOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &res), out.String())
	return res
}

func TestEvaluate_HighThreatAndHumidity(t *testing.T) {
	res := runEvaluate(t, "--pm25", "12", "--humidity", "58", "--outdoor-temp", "70", "--hvac-mode", "cool")

	assert.Equal(t, engine.TierHigh, res.ThreatTier)
	assert.Equal(t, engine.RuleHighHumid, res.InterlockRule)
	require.NotNil(t, res.Targets.PurifierSpeed)
	assert.Equal(t, models.PurifierSpeedMax, *res.Targets.PurifierSpeed)
	require.NotNil(t, res.Targets.FanMode)
	assert.Equal(t, models.FanOn, *res.Targets.FanMode)
	require.NotNil(t, res.Targets.DehumidifierOn)
	assert.True(t, *res.Targets.DehumidifierOn)
	assert.Equal(t, "unchanged", res.NoiseCancellation)
}

func TestEvaluate_MissingReadingsKeepState(t *testing.T) {
	res := runEvaluate(t, "--dehumidifier-on")

	assert.Equal(t, engine.TierNone, res.ThreatTier)
	assert.Equal(t, engine.RuleMissingData, res.InterlockRule)
	assert.Nil(t, res.Targets.PurifierSpeed)
	require.NotNil(t, res.Targets.DehumidifierOn)
	assert.True(t, *res.Targets.DehumidifierOn)
}

func TestEvaluate_OccupancyEntersWhisper(t *testing.T) {
	res := runEvaluate(t, "--occupied", "--pm25", "1")

	assert.Equal(t, "whisper", res.NoiseCancellation)
	assert.Equal(t, "whisper", res.NoiseMode)
	require.NotNil(t, res.Targets.LEDBrightness)
	assert.Equal(t, models.LEDOff, *res.Targets.LEDBrightness)
}

func TestEvaluate_TurboHoldsMaxSpeedOverCleanAir(t *testing.T) {
	res := runEvaluate(t, "--noise-mode", "turbo", "--pm25", "1")

	assert.Equal(t, engine.TierLow, res.ThreatTier)
	assert.Equal(t, "unchanged", res.NoiseCancellation)
	assert.Equal(t, "turbo", res.NoiseMode)
	require.NotNil(t, res.Targets.PurifierSpeed)
	assert.Equal(t, models.PurifierSpeedMax, *res.Targets.PurifierSpeed)
}

func TestEvaluate_RejectsUnknownNoiseMode(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"evaluate", "--noise-mode", "loud"})
	assert.Error(t, root.Execute())
}

func TestEvaluate_RejectsUnknownHVACMode(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"evaluate", "--hvac-mode", "turbo"})
	assert.Error(t, root.Execute())
}
