package linefollow

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// ErrStripOutOfBounds is returned when the scan band does not fit inside a frame.
var ErrStripOutOfBounds = errors.New("strip out of frame bounds")

// StripGeometry is the fixed horizontal band of the frame that is scanned for markings.
type StripGeometry struct {
	Y      int `json:"vert_scan_y"`
	Height int `json:"vert_scan_height"`
	X      int `json:"horz_scan_x"`
	Width  int `json:"horz_scan_width"`
}

// Rect returns the band in frame coordinates relative to the frame origin.
func (g StripGeometry) Rect() image.Rectangle {
	return image.Rect(g.X, g.Y, g.X+g.Width, g.Y+g.Height)
}

// Validate checks the band against a frame of the given resolution.
func (g StripGeometry) Validate(width, height int) error {
	if g.Width <= 0 || g.Height <= 0 {
		return fmt.Errorf("strip size must be positive, got %dx%d", g.Width, g.Height)
	}
	if g.X < 0 || g.Y < 0 {
		return fmt.Errorf("strip offset must not be negative, got (%d, %d)", g.X, g.Y)
	}
	if !g.Rect().In(image.Rect(0, 0, width, height)) {
		return fmt.Errorf("%w: %v not inside %dx%d", ErrStripOutOfBounds, g.Rect(), width, height)
	}
	return nil
}

// ExtractStrip copies the band out of frame. The result has its origin at (0, 0)
// and is exactly g.Width x g.Height.
func ExtractStrip(frame image.Image, g StripGeometry) (*image.NRGBA, error) {
	bounds := frame.Bounds()
	if err := g.Validate(bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}

	src := g.Rect().Add(bounds.Min)
	dst := image.NewNRGBA(image.Rect(0, 0, g.Width, g.Height))
	draw.Draw(dst, dst.Bounds(), frame, src.Min, draw.Src)
	return dst, nil
}
