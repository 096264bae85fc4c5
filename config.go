package linefollow

import (
	"fmt"
	"time"
)

// Config holds the attributes of a line follower. Pointer fields fall back to the
// reference tuning when omitted.
type Config struct {
	Camera        string `json:"camera"`
	SteeringServo string `json:"steering_servo,omitempty"`
	ThrottleMotor string `json:"throttle_motor,omitempty"`

	VertScanY      *int `json:"vert_scan_y,omitempty"`
	VertScanHeight *int `json:"vert_scan_height,omitempty"`
	HorzScanX      *int `json:"horz_scan_x,omitempty"`
	HorzScanWidth  *int `json:"horz_scan_width,omitempty"`

	// expected camera resolution, checked against the strip before anything runs
	CameraWidth  int `json:"camera_width,omitempty"`
	CameraHeight int `json:"camera_height,omitempty"`

	// in priority order, the first usable one calibrates
	Colors []ColorRange `json:"colors,omitempty"`

	ErodeKernel  int `json:"erode_kernel,omitempty"`
	DilateKernel int `json:"dilate_kernel,omitempty"`

	Kp          *float64 `json:"kp,omitempty"`
	Ki          *float64 `json:"ki,omitempty"`
	Kd          *float64 `json:"kd,omitempty"`
	SteeringMin *float64 `json:"steering_min,omitempty"`
	SteeringMax *float64 `json:"steering_max,omitempty"`

	Throttle           *float64 `json:"throttle,omitempty"`
	ThrottleMin        *float64 `json:"throttle_min,omitempty"`
	ThrottleMax        *float64 `json:"throttle_max,omitempty"`
	DeltaTh            *float64 `json:"delta_th,omitempty"`
	DeviationThreshold *float64 `json:"deviation_threshold,omitempty"`

	RateHz        float64 `json:"rate_hz,omitempty"`
	AverageFrames int     `json:"average_frames,omitempty"`
	AsyncCapture  bool    `json:"async_capture,omitempty"`

	LeftPulse  int `json:"left_pulse,omitempty"`
	RightPulse int `json:"right_pulse,omitempty"`

	TelemetryPath string `json:"telemetry_path,omitempty"`
	StartOnBoot   bool   `json:"start_on_boot,omitempty"`
}

// Settings is a Config with every default resolved.
type Settings struct {
	Geometry      StripGeometry
	CameraWidth   int
	CameraHeight  int
	Colors        []ColorRange
	Noise         NoiseConfig
	Loop          LoopConfig
	AverageFrames int
	AsyncCapture  bool
	LeftPulse     int
	RightPulse    int
}

const defaultRateHz = 30

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

// DefaultSettings is the reference tuning for a 640x480 camera.
func DefaultSettings() Settings {
	var cfg Config
	s, err := cfg.Settings()
	if err != nil {
		panic(err)
	}
	return s
}

// Settings resolves defaults and validates the result.
func (cfg *Config) Settings() (Settings, error) {
	pidDefaults := DefaultPIDConfig()
	thDefaults := DefaultThrottleModulator()
	noise := DefaultNoiseConfig()
	if cfg.ErodeKernel != 0 {
		noise.ErodeKernel = cfg.ErodeKernel
	}
	if cfg.DilateKernel != 0 {
		noise.DilateKernel = cfg.DilateKernel
	}

	colors := cfg.Colors
	if len(colors) == 0 {
		colors = []ColorRange{DefaultYellow(), DefaultWhite()}
	}

	rate := cfg.RateHz
	if rate == 0 {
		rate = defaultRateHz
	}

	s := Settings{
		Geometry: StripGeometry{
			Y:      valueOr(cfg.VertScanY, 300),
			Height: valueOr(cfg.VertScanHeight, 30),
			X:      valueOr(cfg.HorzScanX, 125),
			Width:  valueOr(cfg.HorzScanWidth, 500),
		},
		CameraWidth:  cfg.CameraWidth,
		CameraHeight: cfg.CameraHeight,
		Colors:       colors,
		Noise:        noise,
		Loop: LoopConfig{
			Period:          time.Duration(float64(time.Second) / rate),
			InitialThrottle: valueOr(cfg.Throttle, valueOr(cfg.ThrottleMin, thDefaults.Min)),
			PID: PIDConfig{
				Kp:        valueOr(cfg.Kp, pidDefaults.Kp),
				Ki:        valueOr(cfg.Ki, pidDefaults.Ki),
				Kd:        valueOr(cfg.Kd, pidDefaults.Kd),
				OutputMin: valueOr(cfg.SteeringMin, pidDefaults.OutputMin),
				OutputMax: valueOr(cfg.SteeringMax, pidDefaults.OutputMax),
			},
			Throttle: ThrottleModulator{
				Min:       valueOr(cfg.ThrottleMin, thDefaults.Min),
				Max:       valueOr(cfg.ThrottleMax, thDefaults.Max),
				Step:      valueOr(cfg.DeltaTh, thDefaults.Step),
				Threshold: valueOr(cfg.DeviationThreshold, thDefaults.Threshold),
			},
		},
		AverageFrames: max(cfg.AverageFrames, 1),
		AsyncCapture:  cfg.AsyncCapture,
		LeftPulse:     cfg.LeftPulse,
		RightPulse:    cfg.RightPulse,
	}
	if s.LeftPulse == 0 && s.RightPulse == 0 {
		s.LeftPulse, s.RightPulse = 1000, 2000
	}

	return s, s.Validate()
}

// Validate reports configuration errors that must stop the follower before it starts.
func (s Settings) Validate() error {
	if s.Loop.Period <= 0 {
		return fmt.Errorf("rate_hz must be positive")
	}
	if s.CameraWidth != 0 || s.CameraHeight != 0 {
		if err := s.Geometry.Validate(s.CameraWidth, s.CameraHeight); err != nil {
			return err
		}
	} else if s.Geometry.Width <= 0 || s.Geometry.Height <= 0 || s.Geometry.X < 0 || s.Geometry.Y < 0 {
		return fmt.Errorf("bad strip geometry %+v", s.Geometry)
	}
	if _, err := NewPerception(s.Geometry, s.Colors, s.Noise); err != nil {
		return err
	}
	if err := s.Loop.PID.Validate(); err != nil {
		return err
	}
	if err := s.Loop.Throttle.Validate(); err != nil {
		return err
	}
	th := s.Loop.InitialThrottle
	if th < s.Loop.Throttle.Min || th > s.Loop.Throttle.Max {
		return fmt.Errorf("throttle %v must be within [%v, %v]", th, s.Loop.Throttle.Min, s.Loop.Throttle.Max)
	}
	if s.LeftPulse >= s.RightPulse {
		return fmt.Errorf("left_pulse %d must be below right_pulse %d", s.LeftPulse, s.RightPulse)
	}
	return nil
}

// Validate implements resource.ConfigValidator.
func (cfg *Config) Validate(path string) ([]string, []string, error) {
	if cfg.Camera == "" {
		return nil, nil, fmt.Errorf("need a camera")
	}
	if _, err := cfg.Settings(); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	deps := []string{cfg.Camera}
	if cfg.SteeringServo != "" {
		deps = append(deps, cfg.SteeringServo)
	}
	if cfg.ThrottleMotor != "" {
		deps = append(deps, cfg.ThrottleMotor)
	}
	return deps, nil, nil
}
