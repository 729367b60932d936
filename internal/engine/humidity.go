package engine

import (
	"fmt"

	"asthma_shield/internal/models"
)

// Interlock rules, in evaluation order.
const (
	RuleACOvercool  = "ac_overcool"
	RuleFreeDry     = "free_dry"
	RuleHighHumid   = "humidity_high"
	RuleLowHumid    = "humidity_low"
	RuleInBand      = "hysteresis_band"
	RuleMissingData = "missing_input"
)

// HumidityInput is everything the dehumidifier interlock looks at.
type HumidityInput struct {
	IndoorHumidity *float64
	OutdoorTemp    *float64
	HVACMode       models.HVACMode
	HVACRunning    bool
	CurrentOn      bool
}

// HumidityDecision is the desired relay state and the rule that produced it.
type HumidityDecision struct {
	DesiredOn bool
	Rule      string
	Reason    string
}

// Changed reports whether the relay needs a command.
func (d HumidityDecision) Changed(current bool) bool { return d.DesiredOn != current }

// EvaluateHumidity runs the ordered interlock list; the first matching rule
// wins. Missing inputs keep the current relay state.
func EvaluateHumidity(th Thresholds, in HumidityInput) HumidityDecision {
	if in.OutdoorTemp != nil && *in.OutdoorTemp > th.OvercoolOutdoor &&
		in.HVACMode == models.HVACCool && in.HVACRunning {
		return HumidityDecision{
			DesiredOn: false,
			Rule:      RuleACOvercool,
			Reason:    fmt.Sprintf("AC overcool: outdoor %.1fF > %.0fF and cooling is running", *in.OutdoorTemp, th.OvercoolOutdoor),
		}
	}

	if in.IndoorHumidity == nil {
		return HumidityDecision{DesiredOn: in.CurrentOn, Rule: RuleMissingData, Reason: "indoor humidity unavailable; maintaining current state"}
	}
	h := *in.IndoorHumidity

	if in.OutdoorTemp != nil && *in.OutdoorTemp < th.FreeDryOutdoor && h > th.HumidityHigh {
		return HumidityDecision{
			DesiredOn: true,
			Rule:      RuleFreeDry,
			Reason:    fmt.Sprintf("free dry: outdoor %.1fF < %.0fF, humidity %.1f%% > %.0f%%", *in.OutdoorTemp, th.FreeDryOutdoor, h, th.HumidityHigh),
		}
	}

	switch {
	case h > th.HumidityHigh:
		return HumidityDecision{DesiredOn: true, Rule: RuleHighHumid, Reason: fmt.Sprintf("humidity %.1f%% > %.0f%%", h, th.HumidityHigh)}
	case h < th.HumidityLow:
		return HumidityDecision{DesiredOn: false, Rule: RuleLowHumid, Reason: fmt.Sprintf("humidity %.1f%% < %.0f%%", h, th.HumidityLow)}
	default:
		return HumidityDecision{DesiredOn: in.CurrentOn, Rule: RuleInBand, Reason: fmt.Sprintf("humidity %.1f%% inside band; maintaining current state", h)}
	}
}
