package linefollow

import (
	"context"

	"linefollow/internal/telemetry"
)

type telemetryRecorder struct {
	db    *telemetry.DB
	runID string
}

// NewTelemetryRecorder stores tick results under runID.
func NewTelemetryRecorder(db *telemetry.DB, runID string) Recorder {
	return &telemetryRecorder{db: db, runID: runID}
}

func (r *telemetryRecorder) Record(ctx context.Context, res TickResult) error {
	t := telemetry.Tick{
		RunID:    r.runID,
		Tick:     res.Tick,
		Time:     res.Time,
		Phase:    string(res.Phase),
		Target:   telemetry.Unusable,
		Steering: res.Command.Steering,
		Throttle: res.Command.Throttle,
		Columns:  make(map[string]int, len(res.Observations)),
	}
	if res.Calibrated {
		t.Target = res.Target
	}
	if res.Err != nil {
		t.Err = res.Err.Error()
	}
	for _, o := range res.Observations {
		t.Columns[o.Label] = o.Sentinel()
	}
	return r.db.RecordTick(ctx, t)
}
