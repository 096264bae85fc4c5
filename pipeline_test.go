package linefollow

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

var (
	roadGray    = color.NRGBA{60, 60, 60, 255}
	paintYellow = color.NRGBA{230, 200, 20, 255}
	paintWhite  = color.NRGBA{250, 250, 250, 255}
)

type stripe struct {
	x0, x1 int // inclusive
	c      color.NRGBA
}

// laneFrame paints full height vertical stripes on a gray road.
func laneFrame(width, height int, stripes ...stripe) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := range height {
		for x := range width {
			img.SetNRGBA(x, y, roadGray)
		}
	}
	for _, s := range stripes {
		for y := range height {
			for x := s.x0; x <= s.x1; x++ {
				img.SetNRGBA(x, y, s.c)
			}
		}
	}
	return img
}

var testGeometry = StripGeometry{Y: 10, Height: 20, X: 0, Width: 200}

func testPerception(t *testing.T) *Perception {
	p, err := NewPerception(testGeometry, []ColorRange{DefaultYellow(), DefaultWhite()}, DefaultNoiseConfig())
	test.That(t, err, test.ShouldBeNil)
	return p
}

func TestPerceptionProcess(t *testing.T) {
	p := testPerception(t)

	t.Run("both markings", func(t *testing.T) {
		frame := laneFrame(200, 40, stripe{100, 109, paintYellow}, stripe{40, 49, paintWhite})
		res, err := p.Process(frame)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Strip.Bounds(), test.ShouldResemble, image.Rect(0, 0, 200, 20))
		test.That(t, len(res.Masks), test.ShouldEqual, 2)
		test.That(t, len(res.Observations), test.ShouldEqual, 2)

		// the 6x6 dilation widens the 10 pixel stripe to 100..111
		yellow := res.Observations[0]
		test.That(t, yellow.Label, test.ShouldEqual, "yellow")
		test.That(t, yellow.Estimate.Peak, test.ShouldEqual, 100)
		test.That(t, yellow.Estimate.HasBlob, test.ShouldBeTrue)
		test.That(t, yellow.Estimate.Blob.Area, test.ShouldEqual, 12*20)
		test.That(t, yellow.Column, test.ShouldEqual, 102)
		test.That(t, yellow.Usable, test.ShouldBeTrue)

		white := res.Observations[1]
		test.That(t, white.Label, test.ShouldEqual, "white")
		test.That(t, white.Column, test.ShouldEqual, 42)
		test.That(t, white.Usable, test.ShouldBeTrue)
	})

	t.Run("no markings", func(t *testing.T) {
		res, err := p.Process(laneFrame(200, 40))
		test.That(t, err, test.ShouldBeNil)
		for _, o := range res.Observations {
			test.That(t, o.Column, test.ShouldEqual, 0)
			test.That(t, o.Estimate.HasBlob, test.ShouldBeFalse)
			test.That(t, o.Usable, test.ShouldBeFalse)
			test.That(t, o.Sentinel(), test.ShouldEqual, -1)
		}
	})

	t.Run("disabled color", func(t *testing.T) {
		white := DefaultWhite()
		white.Disabled = true
		p, err := NewPerception(testGeometry, []ColorRange{DefaultYellow(), white}, DefaultNoiseConfig())
		test.That(t, err, test.ShouldBeNil)

		frame := laneFrame(200, 40, stripe{100, 109, paintYellow}, stripe{40, 49, paintWhite})
		res, err := p.Process(frame)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Observations[0].Usable, test.ShouldBeTrue)
		test.That(t, res.Observations[1].Usable, test.ShouldBeFalse)
		test.That(t, res.Observations[1].Sentinel(), test.ShouldEqual, -1)
		test.That(t, res.Masks[1].Count(), test.ShouldEqual, 0)
	})

	t.Run("frame too small", func(t *testing.T) {
		_, err := p.Process(laneFrame(150, 40))
		test.That(t, err, test.ShouldNotBeNil)
	})
}

func TestNewPerceptionRejectsBadColors(t *testing.T) {
	_, err := NewPerception(testGeometry, nil, DefaultNoiseConfig())
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewPerception(testGeometry, []ColorRange{DefaultYellow(), DefaultYellow()}, DefaultNoiseConfig())
	test.That(t, err.Error(), test.ShouldContainSubstring, "duplicate")

	bad := DefaultYellow()
	bad.Lower[0] = 40
	_, err = NewPerception(testGeometry, []ColorRange{bad}, DefaultNoiseConfig())
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewPerception(testGeometry, []ColorRange{DefaultYellow()}, NoiseConfig{ErodeKernel: 0, DilateKernel: 6})
	test.That(t, err, test.ShouldNotBeNil)
}
