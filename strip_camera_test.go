package linefollow

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"go.viam.com/rdk/logging"
	"go.viam.com/test"
)

func TestStripDebugImage(t *testing.T) {
	p := testPerception(t)
	frame := laneFrame(200, 40, stripe{100, 109, paintYellow})

	img, err := StripDebugImage(frame, p)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, frame.Bounds())

	// cleaned yellow mask, strip outline, untouched road
	test.That(t, color.RGBAModel.Convert(img.At(105, 15)), test.ShouldResemble, color.RGBA(maskColors[0]))
	test.That(t, color.RGBAModel.Convert(img.At(50, 10)), test.ShouldResemble, color.RGBA{255, 0, 0, 255})
	test.That(t, color.RGBAModel.Convert(img.At(150, 5)), test.ShouldResemble, color.RGBAModel.Convert(roadGray))

	_, err = StripDebugImage(laneFrame(100, 40), p)
	test.That(t, errors.Is(err, ErrStripOutOfBounds), test.ShouldBeTrue)
}

func TestStripCameraImages(t *testing.T) {
	frame := laneFrame(200, 40, stripe{100, 109, paintYellow})
	sc := &StripCamera{
		logger:     logging.NewTestLogger(t),
		input:      &fakeCamera{images: []image.Image{frame}},
		perception: testPerception(t),
	}

	ni, _, err := sc.Images(context.Background(), nil, nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(ni), test.ShouldEqual, 1)
	test.That(t, ni[0].SourceName, test.ShouldEqual, "color")

	img, err := ni[0].Image(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, frame.Bounds())

	sc.input = &fakeCamera{}
	_, _, err = sc.Images(context.Background(), nil, nil)
	test.That(t, err, test.ShouldNotBeNil)
}
