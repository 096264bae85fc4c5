package linefollow

import "math"

// Command is one steering/throttle pair, both in [-1, 1].
type Command struct {
	Steering float64
	Throttle float64
}

// Neutral is published on shutdown.
var Neutral = Command{}

// Bounded clamps both values to [-1, 1].
func (c Command) Bounded() Command {
	return Command{Steering: clamp(c.Steering, -1, 1), Throttle: clamp(c.Throttle, -1, 1)}
}

// Observation is one color's estimate for a tick.
type Observation struct {
	Label    string
	Estimate Estimate
	Column   int
	Usable   bool
}

// NewObservation marks an estimate usable when its color is enabled and the column is positive.
func NewObservation(label string, est Estimate, enabled bool) Observation {
	return Observation{
		Label:    label,
		Estimate: est,
		Column:   est.Column,
		Usable:   enabled && est.Column > 0,
	}
}

// Sentinel encodes the observation the way downstream consumers expect: -1 when unusable.
func (o Observation) Sentinel() int {
	if !o.Usable {
		return -1
	}
	return o.Column
}

// Phase names the tracker's situation after a step.
type Phase string

const (
	PhaseUncalibrated    Phase = "uncalibrated"
	PhaseCalibrating     Phase = "calibrating"
	PhaseTrackingAll     Phase = "tracking"
	PhaseTrackingPartial Phase = "tracking-partial"
	PhaseCoasting        Phase = "coasting"
)

// TrackingState is owned by the control loop and threaded through every step.
type TrackingState struct {
	Target     int
	Calibrated bool
	Command    Command
}

// NewTrackingState returns an uncalibrated state holding the initial throttle.
func NewTrackingState(throttle float64) TrackingState {
	return TrackingState{Command: Command{Throttle: throttle}}
}

// LaneTracker decides each tick which signals are usable and turns them into a command.
type LaneTracker struct {
	pid      *PID
	throttle ThrottleModulator
}

func NewLaneTracker(pid *PID, throttle ThrottleModulator) *LaneTracker {
	return &LaneTracker{pid: pid, throttle: throttle}
}

// Step advances the state by one tick. Observations must be in priority order; the first
// usable one calibrates the target and keys the throttle.
func (lt *LaneTracker) Step(st TrackingState, obs []Observation) (TrackingState, Phase) {
	usable := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if o.Usable {
			usable = append(usable, o)
		}
	}

	if !st.Calibrated {
		if len(usable) == 0 {
			return st, PhaseUncalibrated
		}
		st.Target = usable[0].Column
		st.Calibrated = true
		lt.pid.SetSetpoint(float64(st.Target))
		return st, PhaseCalibrating
	}

	if len(usable) == 0 {
		return st, PhaseCoasting
	}

	sum := 0.0
	for _, o := range usable {
		sum += float64(o.Column)
	}
	st.Command.Steering = lt.pid.Update(sum / float64(len(usable)))

	deviation := math.Abs(float64(usable[0].Column - st.Target))
	st.Command.Throttle = lt.throttle.Adjust(st.Command.Throttle, deviation)

	if len(usable) == len(obs) {
		return st, PhaseTrackingAll
	}
	return st, PhaseTrackingPartial
}
