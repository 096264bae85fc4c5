package linefollow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/multierr"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/components/motor"
	"go.viam.com/rdk/components/servo"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/resource"
	generic "go.viam.com/rdk/services/generic"
	goutils "go.viam.com/utils"

	"linefollow/internal/telemetry"
)

var FollowerModel = family.WithModel("line-follower")

func init() {
	resource.RegisterService(generic.API, FollowerModel,
		resource.Registration[resource.Resource, *Config]{
			Constructor: newLineFollower,
		},
	)
}

type lineFollower struct {
	resource.AlwaysRebuild

	name resource.Name

	logger   logging.Logger
	conf     *Config
	settings Settings

	frames     FrameProvider
	latest     *LatestFrameProvider
	sink       CommandSink
	perception *Perception
	telemetry  *telemetry.DB

	mu      sync.Mutex
	loop    *ControlLoop
	workers *goutils.StoppableWorkers
	runID   string
}

func newLineFollower(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (resource.Resource, error) {
	conf, err := resource.NativeConfig[*Config](rawConf)
	if err != nil {
		return nil, err
	}

	return NewLineFollower(ctx, deps, rawConf.ResourceName(), conf, logger)
}

func NewLineFollower(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *Config, logger logging.Logger) (resource.Resource, error) {
	settings, err := conf.Settings()
	if err != nil {
		return nil, err
	}

	cam, err := camera.FromProvider(deps, conf.Camera)
	if err != nil {
		return nil, err
	}

	var steering servo.Servo
	if conf.SteeringServo != "" {
		steering, err = servo.FromProvider(deps, conf.SteeringServo)
		if err != nil {
			return nil, err
		}
	}

	var throttle motor.Motor
	if conf.ThrottleMotor != "" {
		throttle, err = motor.FromProvider(deps, conf.ThrottleMotor)
		if err != nil {
			return nil, err
		}
	}

	var sink CommandSink = NewLogSink(logger)
	if steering != nil || throttle != nil {
		sink = NewServoMotorSink(steering, throttle)
	} else {
		logger.Warnf("no steering servo or throttle motor configured, commands are only logged")
	}

	return newLineFollowerFrom(ctx, name, conf, settings, NewCameraFrames(cam), sink, logger)
}

func newLineFollowerFrom(
	ctx context.Context,
	name resource.Name,
	conf *Config,
	settings Settings,
	frames FrameProvider,
	sink CommandSink,
	logger logging.Logger,
) (*lineFollower, error) {
	perception, err := NewPerception(settings.Geometry, settings.Colors, settings.Noise)
	if err != nil {
		return nil, err
	}

	// the strip has to fit what the camera actually produces
	first, err := frames.Capture(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't get a first frame from %q: %w", conf.Camera, err)
	}
	if err := settings.Geometry.Validate(first.Bounds().Dx(), first.Bounds().Dy()); err != nil {
		return nil, err
	}

	if settings.AverageFrames > 1 {
		frames = NewFrameAverager(frames, settings.AverageFrames)
	}

	lf := &lineFollower{
		name:       name,
		logger:     logger,
		conf:       conf,
		settings:   settings,
		frames:     frames,
		sink:       sink,
		perception: perception,
	}

	if conf.TelemetryPath != "" {
		lf.telemetry, err = telemetry.Open(conf.TelemetryPath)
		if err != nil {
			return nil, multierr.Combine(err, lf.Close(ctx))
		}
	}

	if conf.StartOnBoot {
		if err := lf.start(ctx); err != nil {
			return nil, multierr.Combine(err, lf.Close(ctx))
		}
	}

	return lf, nil
}

func (lf *lineFollower) Name() resource.Name {
	return lf.name
}

func (lf *lineFollower) start(ctx context.Context) error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.workers != nil {
		return nil
	}

	var opts []LoopOption
	lf.runID = ""
	if lf.telemetry != nil {
		id, err := lf.telemetry.StartRun(ctx, time.Now(), lf.name.Name)
		if err != nil {
			return err
		}
		lf.runID = id
		opts = append(opts, WithRecorder(NewTelemetryRecorder(lf.telemetry, id)))
	}

	frames := lf.frames
	if lf.settings.AsyncCapture {
		// only read the camera while a run is active
		lf.latest = NewLatestFrameProvider(lf.frames)
		frames = lf.latest
	}

	lf.loop = NewControlLoop(frames, lf.sink, lf.perception, lf.settings.Loop, lf.logger, opts...)
	loop := lf.loop
	lf.workers = goutils.NewBackgroundStoppableWorkers(func(ctx context.Context) {
		if err := loop.Run(ctx); err != nil {
			lf.logger.Errorf("control loop failed: %v", err)
		}
	})
	lf.logger.Infof("line follower started at %0.1f Hz", 1/lf.settings.Loop.Period.Seconds())
	return nil
}

// stop blocks until the loop has published its neutral command.
func (lf *lineFollower) stop() bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.workers == nil {
		return false
	}
	lf.workers.Stop()
	lf.workers = nil
	if lf.latest != nil {
		lf.latest.Close()
		lf.latest = nil
	}
	return true
}

type cmdStruct struct {
	Start  bool
	Stop   bool
	Status bool
}

func (lf *lineFollower) DoCommand(ctx context.Context, cmdMap map[string]interface{}) (map[string]interface{}, error) {
	var cmd cmdStruct
	err := mapstructure.Decode(cmdMap, &cmd)
	if err != nil {
		return nil, err
	}

	switch {
	case cmd.Start:
		if err := lf.start(ctx); err != nil {
			return nil, err
		}
		return lf.status(), nil
	case cmd.Stop:
		if !lf.stop() {
			return map[string]interface{}{"running": false, "status": "already_stopped"}, nil
		}
		return lf.status(), nil
	case cmd.Status:
		return lf.status(), nil
	}

	return nil, fmt.Errorf("bad cmd %v", cmdMap)
}

func (lf *lineFollower) status() map[string]interface{} {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	res := map[string]interface{}{
		"running": lf.workers != nil,
	}
	if lf.runID != "" {
		res["run_id"] = lf.runID
	}
	if lf.loop == nil {
		return res
	}

	last := lf.loop.Last()
	columns := map[string]interface{}{}
	for _, o := range last.Observations {
		columns[o.Label] = o.Sentinel()
	}
	res["tick"] = last.Tick
	res["phase"] = string(last.Phase)
	res["calibrated"] = last.Calibrated
	if last.Calibrated {
		res["target_pixel"] = last.Target
	}
	res["steering"] = last.Command.Steering
	res["throttle"] = last.Command.Throttle
	res["steering_pulse"] = SteeringPulse(last.Command.Steering, lf.settings.LeftPulse, lf.settings.RightPulse)
	res["columns"] = columns
	return res
}

func (lf *lineFollower) Close(ctx context.Context) error {
	lf.stop()
	if lf.telemetry != nil {
		return lf.telemetry.Close()
	}
	return nil
}
