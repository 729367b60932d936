package engine

// Thresholds configures every evaluator. PM in µg/m³, humidity in %RH,
// temperatures in °F.
type Thresholds struct {
	PM25High        float64
	PM25Medium      float64
	HumidityHigh    float64
	HumidityLow     float64
	FreeDryOutdoor  float64
	OvercoolOutdoor float64
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PM25High:        10,
		PM25Medium:      5,
		HumidityHigh:    55,
		HumidityLow:     45,
		FreeDryOutdoor:  65,
		OvercoolOutdoor: 80,
	}
}
