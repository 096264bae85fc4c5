package linefollow

import (
	"fmt"
	"time"
)

// PIDConfig holds the steering controller gains and output limits.
type PIDConfig struct {
	Kp        float64 `json:"kp"`
	Ki        float64 `json:"ki"`
	Kd        float64 `json:"kd"`
	OutputMin float64 `json:"steering_min"`
	OutputMax float64 `json:"steering_max"`
}

// DefaultPIDConfig returns the reference gains. The negative proportional gain steers
// toward a marking that drifts right of the set-point.
func DefaultPIDConfig() PIDConfig {
	return PIDConfig{Kp: -0.0027, Ki: 0.00008, Kd: -0.00015, OutputMin: -1, OutputMax: 1}
}

func (c PIDConfig) Validate() error {
	if c.OutputMin >= c.OutputMax {
		return fmt.Errorf("steering_min %v must be below steering_max %v", c.OutputMin, c.OutputMax)
	}
	if c.OutputMin < -1 || c.OutputMax > 1 {
		return fmt.Errorf("steering limits must be within [-1, 1], got [%v, %v]", c.OutputMin, c.OutputMax)
	}
	return nil
}

// PID is a fixed-period controller. The derivative acts on the measurement, and the
// integral is clamped to the output limits.
type PID struct {
	cfg      PIDConfig
	dt       float64
	setpoint float64

	integral        float64
	lastMeasurement float64
	hasLast         bool
}

// NewPID builds a controller that is called once per period.
func NewPID(cfg PIDConfig, period time.Duration) *PID {
	return &PID{cfg: cfg, dt: period.Seconds()}
}

func (p *PID) SetSetpoint(sp float64) {
	p.setpoint = sp
}

func (p *PID) Setpoint() float64 {
	return p.setpoint
}

// Update feeds one measurement and returns the bounded steering command.
func (p *PID) Update(measurement float64) float64 {
	err := p.setpoint - measurement

	dInput := 0.0
	if p.hasLast {
		dInput = measurement - p.lastMeasurement
	}

	proportional := p.cfg.Kp * err

	p.integral += p.cfg.Ki * err * p.dt
	p.integral = clamp(p.integral, p.cfg.OutputMin, p.cfg.OutputMax)

	derivative := 0.0
	if p.dt > 0 {
		derivative = -p.cfg.Kd * dInput / p.dt
	}

	p.lastMeasurement = measurement
	p.hasLast = true

	return clamp(proportional+p.integral+derivative, p.cfg.OutputMin, p.cfg.OutputMax)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
