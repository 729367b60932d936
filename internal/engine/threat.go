package engine

import "asthma_shield/internal/models"

// Threat tiers.
const (
	TierNone   = "none"
	TierLow    = "low"
	TierMedium = "medium"
	TierHigh   = "high"
)

// ThreatDecision is the air quality verdict. Decided is false when PM2.5 was
// unavailable; FanMode is nil when the thermostat fan should be left alone.
type ThreatDecision struct {
	Decided       bool
	Tier          string
	PurifierSpeed int
	FanMode       *models.FanMode
}

// EvaluateThreat maps a PM2.5 reading and occupancy to a purifier speed and an
// optional forced fan mode. Occupancy only escalates the medium tier and the
// fan is never forced off.
func EvaluateThreat(th Thresholds, pm25 *float64, occupied bool) ThreatDecision {
	if pm25 == nil {
		return ThreatDecision{Tier: TierNone}
	}
	switch v := *pm25; {
	case v > th.PM25High:
		fan := models.FanOn
		return ThreatDecision{Decided: true, Tier: TierHigh, PurifierSpeed: models.PurifierSpeedMax, FanMode: &fan}
	case v > th.PM25Medium && occupied:
		return ThreatDecision{Decided: true, Tier: TierMedium, PurifierSpeed: models.PurifierSpeedMedium}
	default:
		return ThreatDecision{Decided: true, Tier: TierLow, PurifierSpeed: models.PurifierSpeedLow}
	}
}
