package linefollow

import (
	"testing"

	"go.viam.com/test"
)

func seen(label string, column int) Observation {
	return NewObservation(label, Estimate{Column: column, Peak: column}, true)
}

func testTracker() *LaneTracker {
	return NewLaneTracker(
		NewPID(DefaultPIDConfig(), testPeriod),
		ThrottleModulator{Min: 0, Max: 0.1, Step: 0.0025, Threshold: 50},
	)
}

func TestObservationUsable(t *testing.T) {
	test.That(t, seen("yellow", 12).Usable, test.ShouldBeTrue)
	test.That(t, seen("yellow", 12).Sentinel(), test.ShouldEqual, 12)

	// column zero reads as no detection
	test.That(t, seen("yellow", 0).Usable, test.ShouldBeFalse)
	test.That(t, seen("yellow", 0).Sentinel(), test.ShouldEqual, -1)

	disabled := NewObservation("white", Estimate{Column: 40}, false)
	test.That(t, disabled.Usable, test.ShouldBeFalse)
	test.That(t, disabled.Sentinel(), test.ShouldEqual, -1)
}

func TestTrackerStaysUncalibrated(t *testing.T) {
	lt := testTracker()
	st := NewTrackingState(0.05)

	st, phase := lt.Step(st, []Observation{seen("yellow", 0), seen("white", 0)})
	test.That(t, phase, test.ShouldEqual, PhaseUncalibrated)
	test.That(t, st.Calibrated, test.ShouldBeFalse)
	test.That(t, st.Target, test.ShouldEqual, 0)
	test.That(t, st.Command, test.ShouldResemble, Command{Steering: 0, Throttle: 0.05})
}

func TestTrackerHoldsTarget(t *testing.T) {
	lt := testTracker()
	st := NewTrackingState(0.05)

	st, phase := lt.Step(st, []Observation{seen("yellow", 300), seen("white", 0)})
	test.That(t, phase, test.ShouldEqual, PhaseCalibrating)
	test.That(t, st.Target, test.ShouldEqual, 300)
	test.That(t, st.Command, test.ShouldResemble, Command{Steering: 0, Throttle: 0.05})

	st, phase = lt.Step(st, []Observation{seen("yellow", 300), seen("white", 0)})
	test.That(t, phase, test.ShouldEqual, PhaseTrackingPartial)
	test.That(t, st.Command.Steering, test.ShouldAlmostEqual, 0)
	test.That(t, st.Command.Throttle, test.ShouldAlmostEqual, 0.0525)

	for _, col := range []int{250, 420, 310} {
		st, _ = lt.Step(st, []Observation{seen("yellow", col), seen("white", col - 200)})
		test.That(t, st.Target, test.ShouldEqual, 300)
	}
}

func TestTrackerSlowsOnDeviation(t *testing.T) {
	lt := testTracker()
	st := NewTrackingState(0.05)

	st, _ = lt.Step(st, []Observation{seen("yellow", 300), seen("white", 0)})

	st, phase := lt.Step(st, []Observation{seen("yellow", 400), seen("white", 0)})
	test.That(t, phase, test.ShouldEqual, PhaseTrackingPartial)
	test.That(t, st.Command.Throttle, test.ShouldAlmostEqual, 0.0475)
	test.That(t, st.Command.Steering, test.ShouldBeGreaterThan, 0)

	for range 40 {
		st, _ = lt.Step(st, []Observation{seen("yellow", 400), seen("white", 0)})
	}
	test.That(t, st.Command.Throttle, test.ShouldEqual, 0)
}

func TestTrackerCoasts(t *testing.T) {
	lt := testTracker()
	st := NewTrackingState(0.05)

	st, _ = lt.Step(st, []Observation{seen("yellow", 300), seen("white", 0)})
	st, _ = lt.Step(st, []Observation{seen("yellow", 350), seen("white", 0)})
	held := st.Command

	st, phase := lt.Step(st, []Observation{seen("yellow", 0), seen("white", 0)})
	test.That(t, phase, test.ShouldEqual, PhaseCoasting)
	test.That(t, st.Command, test.ShouldResemble, held)
	test.That(t, st.Target, test.ShouldEqual, 300)
}

func TestTrackerCalibratesOnWhite(t *testing.T) {
	lt := testTracker()
	st := NewTrackingState(0.05)

	st, phase := lt.Step(st, []Observation{seen("yellow", 0), seen("white", 140)})
	test.That(t, phase, test.ShouldEqual, PhaseCalibrating)
	test.That(t, st.Target, test.ShouldEqual, 140)

	st, phase = lt.Step(st, []Observation{seen("yellow", 0), seen("white", 140)})
	test.That(t, phase, test.ShouldEqual, PhaseTrackingPartial)
	test.That(t, st.Command.Steering, test.ShouldAlmostEqual, 0)
}

func TestTrackerPrefersFirstObservation(t *testing.T) {
	lt := testTracker()
	st := NewTrackingState(0.05)

	st, phase := lt.Step(st, []Observation{seen("yellow", 300), seen("white", 100)})
	test.That(t, phase, test.ShouldEqual, PhaseCalibrating)
	test.That(t, st.Target, test.ShouldEqual, 300)
}

func TestTrackerSteersOnMean(t *testing.T) {
	lt := testTracker()
	st := NewTrackingState(0.05)
	st, _ = lt.Step(st, []Observation{seen("yellow", 300), seen("white", 0)})

	// mean of 240 and 360 sits on target; throttle keys off yellow alone
	st, phase := lt.Step(st, []Observation{seen("yellow", 240), seen("white", 360)})
	test.That(t, phase, test.ShouldEqual, PhaseTrackingAll)
	test.That(t, st.Command.Steering, test.ShouldAlmostEqual, 0)
	test.That(t, st.Command.Throttle, test.ShouldAlmostEqual, 0.05-0.0025)
}

func TestCommandBounded(t *testing.T) {
	test.That(t, Command{Steering: 3, Throttle: -2}.Bounded(), test.ShouldResemble, Command{Steering: 1, Throttle: -1})
	test.That(t, Command{Steering: 0.2, Throttle: 0.1}.Bounded(), test.ShouldResemble, Command{Steering: 0.2, Throttle: 0.1})
}
