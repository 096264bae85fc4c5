package linefollow

import (
	"context"
	"math"

	"go.uber.org/multierr"

	"go.viam.com/rdk/components/motor"
	"go.viam.com/rdk/components/servo"
	"go.viam.com/rdk/logging"
)

const (
	leftSteering  = -1.0
	rightSteering = 1.0
)

// MapRange linearly maps x from [xMin, xMax] onto [yMin, yMax] and floors the result.
func MapRange(x, xMin, xMax, yMin, yMax float64) int {
	return int(math.Floor((x-xMin)*(yMax-yMin)/(xMax-xMin) + yMin))
}

// SteeringAngle converts a steering command to a servo angle in degrees, 90 being straight.
func SteeringAngle(steering float64) uint32 {
	return uint32(MapRange(clamp(steering, leftSteering, rightSteering), leftSteering, rightSteering, 0, 180))
}

// SteeringPulse converts a steering command to a pulse width between the two end pulses.
func SteeringPulse(steering float64, leftPulse, rightPulse int) int {
	return MapRange(clamp(steering, leftSteering, rightSteering), leftSteering, rightSteering,
		float64(leftPulse), float64(rightPulse))
}

// ServoMotorSink drives a steering servo and a throttle motor. Either may be nil.
type ServoMotorSink struct {
	steering servo.Servo
	throttle motor.Motor
}

func NewServoMotorSink(steering servo.Servo, throttle motor.Motor) *ServoMotorSink {
	return &ServoMotorSink{steering: steering, throttle: throttle}
}

func (s *ServoMotorSink) Publish(ctx context.Context, cmd Command) error {
	var errSteer, errThrottle error
	if s.steering != nil {
		errSteer = s.steering.Move(ctx, SteeringAngle(cmd.Steering), nil)
	}
	if s.throttle != nil {
		if cmd.Throttle == 0 {
			errThrottle = s.throttle.Stop(ctx, nil)
		} else {
			errThrottle = s.throttle.SetPower(ctx, clamp(cmd.Throttle, -1, 1), nil)
		}
	}
	return multierr.Combine(errSteer, errThrottle)
}

type logSink struct {
	logger logging.Logger
}

// NewLogSink only logs commands, for running without actuators.
func NewLogSink(logger logging.Logger) CommandSink {
	return &logSink{logger: logger}
}

func (s *logSink) Publish(ctx context.Context, cmd Command) error {
	s.logger.Debugf("steering: %0.4f throttle: %0.4f", cmd.Steering, cmd.Throttle)
	return nil
}
