package linefollow

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.viam.com/rdk/components/camera"
	goutils "go.viam.com/utils"
)

type cameraFrames struct {
	cam camera.Camera
}

// NewCameraFrames captures frames from the first image a camera returns.
func NewCameraFrames(cam camera.Camera) FrameProvider {
	return &cameraFrames{cam: cam}
}

func (cf *cameraFrames) Capture(ctx context.Context) (image.Image, error) {
	ni, _, err := cf.cam.Images(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	if len(ni) == 0 {
		return nil, fmt.Errorf("no images returned from camera %v", cf.cam.Name())
	}
	return ni[0].Image(ctx)
}

// FrameAverager returns the per-channel mean of several consecutive frames.
type FrameAverager struct {
	src FrameProvider
	n   int
}

func NewFrameAverager(src FrameProvider, n int) *FrameAverager {
	return &FrameAverager{src: src, n: max(n, 1)}
}

func (fa *FrameAverager) Capture(ctx context.Context) (image.Image, error) {
	first, err := fa.src.Capture(ctx)
	if err != nil || fa.n == 1 {
		return first, err
	}

	bounds := first.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	sums := make([]uint32, width*height*3)
	accumulate(sums, first)

	for i := 1; i < fa.n; i++ {
		img, err := fa.src.Capture(ctx)
		if err != nil {
			return nil, err
		}
		if img.Bounds().Dx() != width || img.Bounds().Dy() != height {
			return nil, fmt.Errorf("frame %d is %v, expected %dx%d", i, img.Bounds(), width, height)
		}
		accumulate(sums, img)
	}

	out := image.NewNRGBA(image.Rect(0, 0, width, height))
	n := uint32(fa.n)
	for i := range width * height {
		out.Pix[i*4] = uint8(sums[i*3] / n)
		out.Pix[i*4+1] = uint8(sums[i*3+1] / n)
		out.Pix[i*4+2] = uint8(sums[i*3+2] / n)
		out.Pix[i*4+3] = 255
	}
	return out, nil
}

func accumulate(sums []uint32, img image.Image) {
	bounds := img.Bounds()
	width := bounds.Dx()
	for y := range bounds.Dy() {
		for x := range width {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			i := (y*width + x) * 3
			sums[i] += r >> 8
			sums[i+1] += g >> 8
			sums[i+2] += b >> 8
		}
	}
}

type captured struct {
	img image.Image
	err error
}

// LatestFrameProvider captures in the background and keeps at most one unread frame,
// dropping the older one when a newer frame arrives.
type LatestFrameProvider struct {
	src     FrameProvider
	frames  chan captured
	workers *goutils.StoppableWorkers
}

func NewLatestFrameProvider(src FrameProvider) *LatestFrameProvider {
	lf := &LatestFrameProvider{src: src, frames: make(chan captured, 1)}
	lf.workers = goutils.NewBackgroundStoppableWorkers(lf.captureLoop)
	return lf
}

func (lf *LatestFrameProvider) captureLoop(ctx context.Context) {
	for ctx.Err() == nil {
		img, err := lf.src.Capture(ctx)
		select {
		case <-lf.frames:
		default:
		}
		// single producer, so the slot is free now
		lf.frames <- captured{img: img, err: err}
		if err != nil {
			goutils.SelectContextOrWait(ctx, 10*time.Millisecond)
		}
	}
}

// Capture waits for the next frame captured after the previous call.
func (lf *LatestFrameProvider) Capture(ctx context.Context) (image.Image, error) {
	select {
	case c := <-lf.frames:
		return c.img, c.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the capture goroutine.
func (lf *LatestFrameProvider) Close() {
	lf.workers.Stop()
}
