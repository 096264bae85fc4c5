package linefollow

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"go.viam.com/rdk/logging"
	"go.viam.com/utils/trace"
)

// FrameProvider supplies one frame per tick. It should return within one period.
type FrameProvider interface {
	Capture(ctx context.Context) (image.Image, error)
}

// CommandSink receives every emitted command. Delivery is best effort.
type CommandSink interface {
	Publish(ctx context.Context, cmd Command) error
}

// Recorder stores tick results, e.g. for later plotting.
type Recorder interface {
	Record(ctx context.Context, res TickResult) error
}

// TickResult describes one pass of the control loop.
type TickResult struct {
	Tick         int
	Time         time.Time
	Phase        Phase
	Observations []Observation
	Target       int
	Calibrated   bool
	Command      Command
	// Err is a capture or strip failure that made the tick coast.
	Err error
}

// LoopConfig holds the control parameters of a run.
type LoopConfig struct {
	Period          time.Duration
	InitialThrottle float64
	PID             PIDConfig
	Throttle        ThrottleModulator
}

// ControlLoop runs perception and control at a fixed rate. Tracking and controller state
// belong to the goroutine calling Run or Tick.
type ControlLoop struct {
	logger     logging.Logger
	frames     FrameProvider
	sink       CommandSink
	perception *Perception
	recorder   Recorder
	clock      clock.Clock
	period     time.Duration

	tracker   *LaneTracker
	state     TrackingState
	tick      int
	lastPhase Phase

	mu   sync.Mutex
	last TickResult
}

// LoopOption customizes a ControlLoop.
type LoopOption func(*ControlLoop)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(c clock.Clock) LoopOption {
	return func(l *ControlLoop) {
		l.clock = c
	}
}

// WithRecorder stores every tick result.
func WithRecorder(r Recorder) LoopOption {
	return func(l *ControlLoop) {
		l.recorder = r
	}
}

// NewControlLoop builds a loop for a single run. A new run needs a new loop.
func NewControlLoop(
	frames FrameProvider,
	sink CommandSink,
	perception *Perception,
	cfg LoopConfig,
	logger logging.Logger,
	opts ...LoopOption,
) *ControlLoop {
	pid := NewPID(cfg.PID, cfg.Period)
	l := &ControlLoop{
		logger:     logger,
		frames:     frames,
		sink:       sink,
		perception: perception,
		clock:      clock.New(),
		period:     cfg.Period,
		tracker:    NewLaneTracker(pid, cfg.Throttle),
		state:      NewTrackingState(cfg.InitialThrottle),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Last returns a copy of the most recent tick result.
func (l *ControlLoop) Last() TickResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last
}

// Tick runs the pipeline once and publishes the resulting command. Perception misses and
// capture failures hold the previous command.
func (l *ControlLoop) Tick(ctx context.Context) TickResult {
	ctx, span := trace.StartSpan(ctx, "linefollow::tick")
	defer span.End()

	l.tick++
	res := TickResult{Tick: l.tick, Time: l.clock.Now()}

	var pr *PerceptionResult
	frame, err := l.frames.Capture(ctx)
	if err == nil {
		pr, err = l.perception.Process(frame)
	}

	if err != nil {
		res.Err = err
		res.Phase = PhaseCoasting
		if l.lastPhase != PhaseCoasting {
			l.logger.Warnf("tick %d: holding last command: %v", l.tick, err)
		}
	} else {
		wasCalibrated := l.state.Calibrated
		l.state, res.Phase = l.tracker.Step(l.state, pr.Observations)
		res.Observations = pr.Observations
		if !wasCalibrated && l.state.Calibrated {
			l.logger.Infof("calibrated on %s, target pixel %d", firstUsable(pr.Observations), l.state.Target)
		}
		if res.Phase == PhaseCoasting && l.lastPhase != PhaseCoasting {
			l.logger.Warnf("tick %d: no usable marking, coasting", l.tick)
		}
	}
	l.lastPhase = res.Phase

	res.Target = l.state.Target
	res.Calibrated = l.state.Calibrated
	res.Command = l.state.Command.Bounded()

	for _, o := range res.Observations {
		l.logger.Debugf("tick %d %s: column %d usable %v", l.tick, o.Label, o.Column, o.Usable)
	}
	l.logger.Debugf("tick %d %s: steering %0.4f throttle %0.4f", l.tick, res.Phase, res.Command.Steering, res.Command.Throttle)

	l.publish(ctx, res.Command)

	if l.recorder != nil {
		if err := l.recorder.Record(ctx, res); err != nil {
			l.logger.Warnf("can't record tick %d: %v", l.tick, err)
		}
	}

	l.mu.Lock()
	l.last = res
	l.mu.Unlock()

	return res
}

// Run ticks until ctx is done, then publishes a neutral command once and returns.
func (l *ControlLoop) Run(ctx context.Context) error {
	ticker := l.clock.Ticker(l.period)
	defer ticker.Stop()

	for ctx.Err() == nil {
		l.Tick(ctx)
		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	l.publish(stopCtx, Neutral)

	l.mu.Lock()
	l.last.Command = Neutral
	l.mu.Unlock()

	l.logger.Infof("control loop stopped after %d ticks", l.tick)
	return nil
}

func (l *ControlLoop) publish(ctx context.Context, cmd Command) {
	if err := l.sink.Publish(ctx, cmd); err != nil {
		l.logger.Warnf("can't publish steering %0.4f throttle %0.4f: %v", cmd.Steering, cmd.Throttle, err)
	}
}

func firstUsable(obs []Observation) string {
	for _, o := range obs {
		if o.Usable {
			return o.Label
		}
	}
	return ""
}
