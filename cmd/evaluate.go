package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"asthma_shield/internal/engine"
	"asthma_shield/internal/models"
)

type evaluateFlags struct {
	pm25, humidity, indoorTemp, outdoorTemp float64
	occupied, hvacRunning, dehumidifierOn   bool
	hvacMode, noiseMode                     string
	purifierSpeed                           int
}

// evaluateOutput is printed by the evaluate command.
type evaluateOutput struct {
	ThreatTier        string         `json:"threat_tier"`
	InterlockRule     string         `json:"interlock_rule"`
	InterlockReason   string         `json:"interlock_reason"`
	NoiseCancellation string         `json:"noise_cancellation"`
	NoiseMode         string         `json:"noise_mode"`
	Targets           engine.Targets `json:"targets"`
}

func newEvaluateCmd(opts *rootOptions) *cobra.Command {
	var f evaluateFlags
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one pure evaluation from flags and print the decisions as JSON.",
		Long: `evaluate applies the configured thresholds to the readings given as flags.
Readings that are not set are treated as unavailable. No device is contacted.`,
		Example: `  asthma-shield evaluate --pm25 12 --humidity 58 --outdoor-temp 70 --hvac-mode cool`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			snap, err := f.snapshot(cmd.Flags())
			if err != nil {
				return err
			}
			mode, err := parseNoiseMode(f.noiseMode)
			if err != nil {
				return err
			}
			current := models.DefaultActuatorState()
			current.PurifierSpeed = f.purifierSpeed
			current.DehumidifierOn = f.dehumidifierOn

			plan := engine.BuildPlan(thresholds(cfg.Thresholds), snap, current, mode)
			out := evaluateOutput{
				ThreatTier:        plan.Threat.Tier,
				InterlockRule:     plan.Humidity.Rule,
				InterlockReason:   plan.Humidity.Reason,
				NoiseCancellation: "unchanged",
				NoiseMode:         plan.Occupancy.Next.String(),
				Targets:           plan.Targets,
			}
			if plan.Occupancy.Command {
				out.NoiseCancellation = plan.Occupancy.Next.String()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	fl := cmd.Flags()
	fl.Float64Var(&f.pm25, "pm25", 0, "PM2.5 in µg/m³")
	fl.Float64Var(&f.humidity, "humidity", 0, "indoor relative humidity in %")
	fl.Float64Var(&f.indoorTemp, "indoor-temp", 0, "indoor temperature in °F")
	fl.Float64Var(&f.outdoorTemp, "outdoor-temp", 0, "outdoor temperature in °F")
	fl.BoolVar(&f.occupied, "occupied", false, "room is occupied")
	fl.StringVar(&f.hvacMode, "hvac-mode", string(models.HVACOff), "thermostat mode: off, heat, cool, auto")
	fl.BoolVar(&f.hvacRunning, "hvac-running", false, "thermostat is actively heating or cooling")
	fl.StringVar(&f.noiseMode, "noise-mode", engine.NoiseIdle.String(), "current noise cancellation mode: idle, whisper, turbo")
	fl.BoolVar(&f.dehumidifierOn, "dehumidifier-on", false, "dehumidifier relay currently on")
	fl.IntVar(&f.purifierSpeed, "purifier-speed", models.PurifierSpeedOff, "current purifier speed 0..3")
	return cmd
}

// snapshot builds the environment from the flags; unset readings stay nil.
func (f evaluateFlags) snapshot(fl *pflag.FlagSet) (models.EnvironmentSnapshot, error) {
	mode, ok := models.ParseHVACMode(f.hvacMode)
	if !ok {
		return models.EnvironmentSnapshot{}, fmt.Errorf("unknown --hvac-mode %q", f.hvacMode)
	}
	snap := models.EnvironmentSnapshot{
		Occupied:       f.occupied,
		OccupancyKnown: true,
		HVACMode:       mode,
		HVACRunning:    f.hvacRunning,
	}
	if fl.Changed("pm25") {
		snap.PM25 = models.Float(f.pm25)
	}
	if fl.Changed("humidity") {
		snap.IndoorHumidity = models.Float(f.humidity)
	}
	if fl.Changed("indoor-temp") {
		snap.IndoorTemp = models.Float(f.indoorTemp)
	}
	if fl.Changed("outdoor-temp") {
		snap.OutdoorTemp = models.Float(f.outdoorTemp)
	}
	return snap, nil
}

func parseNoiseMode(s string) (engine.NoiseMode, error) {
	for _, m := range []engine.NoiseMode{engine.NoiseIdle, engine.NoiseWhisper, engine.NoiseTurbo} {
		if strings.EqualFold(strings.TrimSpace(s), m.String()) {
			return m, nil
		}
	}
	return engine.NoiseIdle, fmt.Errorf("unknown --noise-mode %q", s)
}
