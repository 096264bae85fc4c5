package linefollow

import (
	"image"
	"image/color"
	"testing"

	"go.viam.com/test"
)

func TestToHSV(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 5, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	img.SetNRGBA(1, 0, color.NRGBA{0, 0, 255, 255})
	img.SetNRGBA(2, 0, paintYellow)
	img.SetNRGBA(3, 0, paintWhite)
	img.SetNRGBA(4, 0, color.NRGBA{0, 0, 0, 255})

	hsv := ToHSV(img)
	test.That(t, hsv.Width, test.ShouldEqual, 5)
	test.That(t, hsv.Height, test.ShouldEqual, 1)

	h, s, v := hsv.At(0, 0)
	test.That(t, []uint8{h, s, v}, test.ShouldResemble, []uint8{0, 255, 255})

	h, s, v = hsv.At(1, 0)
	test.That(t, []uint8{h, s, v}, test.ShouldResemble, []uint8{120, 255, 255})

	h, s, v = hsv.At(2, 0)
	test.That(t, h, test.ShouldEqual, 26)
	test.That(t, s, test.ShouldEqual, 233)
	test.That(t, v, test.ShouldEqual, 230)

	h, s, v = hsv.At(3, 0)
	test.That(t, []uint8{h, s, v}, test.ShouldResemble, []uint8{0, 0, 250})

	h, s, v = hsv.At(4, 0)
	test.That(t, []uint8{h, s, v}, test.ShouldResemble, []uint8{0, 0, 0})
}

func TestToHSVGenericImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(10, 10, 12, 11))
	img.Set(10, 10, color.RGBA{0, 255, 0, 255})
	img.Set(11, 10, color.RGBA{0, 0, 0, 0})

	hsv := ToHSV(img)
	h, s, v := hsv.At(0, 0)
	test.That(t, []uint8{h, s, v}, test.ShouldResemble, []uint8{60, 255, 255})

	h, s, v = hsv.At(1, 0)
	test.That(t, []uint8{h, s, v}, test.ShouldResemble, []uint8{0, 0, 0})
}

func TestInRange(t *testing.T) {
	hsv := &HSVImage{Width: 4, Height: 1, Pix: []uint8{
		15, 50, 50,
		35, 255, 255,
		14, 200, 200,
		36, 200, 200,
	}}

	mask := InRange(hsv, DefaultYellow())
	test.That(t, mask.Width(), test.ShouldEqual, 4)
	test.That(t, mask.Height(), test.ShouldEqual, 1)
	test.That(t, mask[0], test.ShouldResemble, []bool{true, true, false, false})
}

func TestColorRangeValidate(t *testing.T) {
	test.That(t, DefaultYellow().Validate(), test.ShouldBeNil)
	test.That(t, DefaultWhite().Validate(), test.ShouldBeNil)

	test.That(t, ColorRange{Lower: [3]int{0, 0, 0}, Upper: [3]int{1, 1, 1}}.Validate(), test.ShouldNotBeNil)

	r := DefaultYellow()
	r.Upper[2] = 256
	test.That(t, r.Validate(), test.ShouldNotBeNil)

	r = DefaultYellow()
	r.Lower[1] = -1
	test.That(t, r.Validate(), test.ShouldNotBeNil)

	r = DefaultWhite()
	r.Lower[2] = 250
	r.Upper[2] = 240
	err := r.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "above upper")
}

func TestWhiteExcludesYellowPaint(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, paintWhite)
	img.SetNRGBA(1, 0, paintYellow)
	hsv := ToHSV(img)

	test.That(t, InRange(hsv, DefaultWhite())[0], test.ShouldResemble, []bool{true, false})

	// without a saturation cap bright yellow paint reads as white too
	loose := ColorRange{Name: "white", Lower: [3]int{0, 0, 230}, Upper: [3]int{131, 255, 255}}
	test.That(t, InRange(hsv, loose)[0], test.ShouldResemble, []bool{true, true})
}
