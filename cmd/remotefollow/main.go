// remotefollow drives a machine's steering servo and throttle motor from this process,
// using the machine's camera. Connection details come from the environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erh/vmodutils"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/components/motor"
	"go.viam.com/rdk/components/servo"
	"go.viam.com/rdk/logging"

	"linefollow"
	"linefollow/internal/telemetry"
)

func main() {
	err := realMain()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func realMain() error {
	cameraName := flag.String("camera", "", "camera name")
	servoName := flag.String("servo", "", "steering servo name")
	motorName := flag.String("motor", "", "throttle motor name")
	rate := flag.Float64("rate", 30, "control rate in Hz")
	duration := flag.Duration("duration", 0, "stop after this long, 0 runs until interrupted")
	dbPath := flag.String("telemetry", "", "sqlite file to record the run in")
	debug := flag.Bool("debug", false, "log every tick")
	flag.Parse()

	logger := logging.NewLogger("remotefollow")
	if *debug {
		logger.SetLevel(logging.DEBUG)
	}

	conf := &linefollow.Config{
		Camera:        *cameraName,
		SteeringServo: *servoName,
		ThrottleMotor: *motorName,
		RateHz:        *rate,
	}
	if _, _, err := conf.Validate("remotefollow"); err != nil {
		return err
	}
	settings, err := conf.Settings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	machine, err := vmodutils.ConnectToMachineFromEnv(ctx, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := machine.Close(closeCtx); err != nil {
			logger.Warnf("can't close machine connection: %v", err)
		}
	}()

	cam, err := camera.FromRobot(machine, conf.Camera)
	if err != nil {
		return err
	}

	var steering servo.Servo
	if conf.SteeringServo != "" {
		steering, err = servo.FromRobot(machine, conf.SteeringServo)
		if err != nil {
			return err
		}
	}
	var throttle motor.Motor
	if conf.ThrottleMotor != "" {
		throttle, err = motor.FromRobot(machine, conf.ThrottleMotor)
		if err != nil {
			return err
		}
	}

	var sink linefollow.CommandSink = linefollow.NewLogSink(logger)
	if steering != nil || throttle != nil {
		sink = linefollow.NewServoMotorSink(steering, throttle)
	}

	perception, err := linefollow.NewPerception(settings.Geometry, settings.Colors, settings.Noise)
	if err != nil {
		return err
	}

	frames := linefollow.NewCameraFrames(cam)
	first, err := frames.Capture(ctx)
	if err != nil {
		return err
	}
	if err := settings.Geometry.Validate(first.Bounds().Dx(), first.Bounds().Dy()); err != nil {
		return err
	}

	var opts []linefollow.LoopOption
	if *dbPath != "" {
		db, err := telemetry.Open(*dbPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.Warnf("can't close telemetry: %v", err)
			}
		}()
		runID, err := db.StartRun(ctx, time.Now(), "remotefollow "+conf.Camera)
		if err != nil {
			return err
		}
		logger.Infof("recording run %s to %s", runID, *dbPath)
		opts = append(opts, linefollow.WithRecorder(linefollow.NewTelemetryRecorder(db, runID)))
	}

	loop := linefollow.NewControlLoop(frames, sink, perception, settings.Loop, logger, opts...)
	return loop.Run(ctx)
}
