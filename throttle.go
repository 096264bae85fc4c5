package linefollow

import "fmt"

// ThrottleModulator nudges throttle down by Step while the tracked marking is more than
// Threshold pixels off target, and back up by Step otherwise, staying within [Min, Max].
type ThrottleModulator struct {
	Min       float64 `json:"throttle_min"`
	Max       float64 `json:"throttle_max"`
	Step      float64 `json:"delta_th"`
	Threshold float64 `json:"deviation_threshold"`
}

func DefaultThrottleModulator() ThrottleModulator {
	return ThrottleModulator{Min: 0.06, Max: 0.06, Step: 0.0025, Threshold: 50}
}

func (m ThrottleModulator) Validate() error {
	if m.Min > m.Max {
		return fmt.Errorf("throttle_min %v is above throttle_max %v", m.Min, m.Max)
	}
	if m.Min < -1 || m.Max > 1 {
		return fmt.Errorf("throttle limits must be within [-1, 1], got [%v, %v]", m.Min, m.Max)
	}
	if m.Step < 0 {
		return fmt.Errorf("delta_th must not be negative, got %v", m.Step)
	}
	if m.Threshold < 0 {
		return fmt.Errorf("deviation_threshold must not be negative, got %v", m.Threshold)
	}
	return nil
}

// Adjust returns the next throttle given the current one and the absolute deviation
// of the tracked signal from the target.
func (m ThrottleModulator) Adjust(current, deviation float64) float64 {
	if deviation > m.Threshold {
		if current > m.Min {
			return max(current-m.Step, m.Min)
		}
		return current
	}
	if current < m.Max {
		return min(current+m.Step, m.Max)
	}
	return current
}
