package engine

import "asthma_shield/internal/models"

// NoiseMode is the noise cancellation state carried from one pass to the next.
type NoiseMode int32

const (
	// NoiseIdle: no occupancy transition seen yet.
	NoiseIdle NoiseMode = iota
	// NoiseWhisper: occupied, purifier quiet and dark.
	NoiseWhisper
	// NoiseTurbo: vacated after whisper, purifier held at max.
	NoiseTurbo
)

func (m NoiseMode) String() string {
	switch m {
	case NoiseWhisper:
		return "whisper"
	case NoiseTurbo:
		return "turbo"
	default:
		return "idle"
	}
}

// OccupancyDecision is the noise cancellation verdict. Command is set only on
// a transition. SpeedFloor is the minimum purifier speed the current mode
// holds between transitions.
type OccupancyDecision struct {
	Command       bool
	LEDBrightness *int
	PurifierSpeed *int
	SpeedFloor    *int
	Next          NoiseMode
}

// EvaluateOccupancy switches the purifier into whisper mode when the space
// becomes occupied and into turbo when it empties after whisper. A nil
// occupied means the reading is unavailable and the mode is kept as is.
func EvaluateOccupancy(occupied *bool, mode NoiseMode) OccupancyDecision {
	switch {
	case occupied == nil:
		return OccupancyDecision{Next: mode, SpeedFloor: turboFloor(mode)}
	case *occupied && mode != NoiseWhisper:
		led, speed := models.LEDOff, models.PurifierSpeedLow
		return OccupancyDecision{Command: true, LEDBrightness: &led, PurifierSpeed: &speed, Next: NoiseWhisper}
	case !*occupied && mode == NoiseWhisper:
		speed := models.PurifierSpeedMax
		return OccupancyDecision{Command: true, PurifierSpeed: &speed, Next: NoiseTurbo}
	default:
		return OccupancyDecision{Next: mode, SpeedFloor: turboFloor(mode)}
	}
}

func turboFloor(mode NoiseMode) *int {
	if mode != NoiseTurbo {
		return nil
	}
	speed := models.PurifierSpeedMax
	return &speed
}
