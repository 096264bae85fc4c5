package linefollow

import (
	"fmt"
	"image"
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// HSVImage holds a hue/saturation/value image in 8-bit OpenCV units:
// hue in [0, 180), saturation and value in [0, 255].
type HSVImage struct {
	Width, Height int
	Pix           []uint8
}

// At returns the h, s, v triple at (x, y).
func (h *HSVImage) At(x, y int) (uint8, uint8, uint8) {
	i := (y*h.Width + x) * 3
	return h.Pix[i], h.Pix[i+1], h.Pix[i+2]
}

func hsvFromColorful(c colorful.Color) (uint8, uint8, uint8) {
	hue, sat, val := c.Hsv()
	h := math.Round(hue / 2)
	if h >= 180 {
		h -= 180
	}
	return uint8(h), uint8(math.Round(sat * 255)), uint8(math.Round(val * 255))
}

// ToHSV converts img to an HSVImage with its origin at (0, 0).
func ToHSV(img image.Image) *HSVImage {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := &HSVImage{Width: width, Height: height, Pix: make([]uint8, width*height*3)}

	nrgba, fast := img.(*image.NRGBA)

	for y := range height {
		for x := range width {
			var c colorful.Color
			if fast {
				p := nrgba.PixOffset(bounds.Min.X+x, bounds.Min.Y+y)
				c = colorful.Color{
					R: float64(nrgba.Pix[p]) / 255,
					G: float64(nrgba.Pix[p+1]) / 255,
					B: float64(nrgba.Pix[p+2]) / 255,
				}
			} else {
				var ok bool
				c, ok = colorful.MakeColor(img.At(bounds.Min.X+x, bounds.Min.Y+y))
				if !ok {
					// fully transparent, treat as black
					c = colorful.Color{}
				}
			}
			i := (y*width + x) * 3
			out.Pix[i], out.Pix[i+1], out.Pix[i+2] = hsvFromColorful(c)
		}
	}
	return out
}

// ColorRange is an inclusive HSV box for one tracked marking color.
type ColorRange struct {
	Name     string `json:"name"`
	Lower    [3]int `json:"lower"`
	Upper    [3]int `json:"upper"`
	Disabled bool   `json:"disabled,omitempty"`
}

// Validate rejects malformed ranges.
func (r ColorRange) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("color range needs a name")
	}
	for i := range 3 {
		if r.Lower[i] < 0 || r.Lower[i] > 255 || r.Upper[i] < 0 || r.Upper[i] > 255 {
			return fmt.Errorf("color %q: channel %d bounds must be within [0, 255], got [%d, %d]",
				r.Name, i, r.Lower[i], r.Upper[i])
		}
		if r.Lower[i] > r.Upper[i] {
			return fmt.Errorf("color %q: channel %d lower %d is above upper %d",
				r.Name, i, r.Lower[i], r.Upper[i])
		}
	}
	return nil
}

// Contains reports whether the pixel lies inside the range on every channel.
func (r ColorRange) Contains(h, s, v uint8) bool {
	return int(h) >= r.Lower[0] && int(h) <= r.Upper[0] &&
		int(s) >= r.Lower[1] && int(s) <= r.Upper[1] &&
		int(v) >= r.Lower[2] && int(v) <= r.Upper[2]
}

// DefaultYellow matches painted yellow lane markings.
func DefaultYellow() ColorRange {
	return ColorRange{Name: "yellow", Lower: [3]int{15, 50, 50}, Upper: [3]int{35, 255, 255}}
}

// DefaultWhite matches bright, unsaturated white markings.
func DefaultWhite() ColorRange {
	return ColorRange{Name: "white", Lower: [3]int{0, 0, 230}, Upper: [3]int{180, 20, 255}}
}

// InRange builds the mask of pixels inside r.
func InRange(hsv *HSVImage, r ColorRange) Mask {
	mask := NewMask(hsv.Width, hsv.Height)
	for y := range hsv.Height {
		for x := range hsv.Width {
			h, s, v := hsv.At(x, y)
			mask[y][x] = r.Contains(h, s, v)
		}
	}
	return mask
}
