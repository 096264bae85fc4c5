package linefollow

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"go.viam.com/rdk/components/camera"
	"go.viam.com/rdk/data"
	"go.viam.com/rdk/logging"
	"go.viam.com/rdk/pointcloud"
	"go.viam.com/rdk/resource"
	"go.viam.com/rdk/spatialmath"
)

var StripCameraModel = family.WithModel("strip-camera")

func init() {
	resource.RegisterComponent(camera.API, StripCameraModel,
		resource.Registration[camera.Camera, *Config]{
			Constructor: newStripCamera,
		},
	)
}

// tints per color priority
var maskColors = []color.RGBA{
	{255, 220, 0, 255},
	{255, 0, 255, 255},
	{0, 255, 255, 255},
	{0, 255, 0, 255},
}

func newStripCamera(ctx context.Context, deps resource.Dependencies, rawConf resource.Config, logger logging.Logger) (camera.Camera, error) {
	conf, err := resource.NativeConfig[*Config](rawConf)
	if err != nil {
		return nil, err
	}

	return NewStripCamera(ctx, deps, rawConf.ResourceName(), conf, logger)
}

// NewStripCamera wraps an input camera and shows what the line follower sees.
// It uses the perception attributes of a line follower config.
func NewStripCamera(ctx context.Context, deps resource.Dependencies, name resource.Name, conf *Config, logger logging.Logger) (camera.Camera, error) {
	settings, err := conf.Settings()
	if err != nil {
		return nil, err
	}

	sc := &StripCamera{
		name:   name,
		conf:   conf,
		logger: logger,
	}

	sc.perception, err = NewPerception(settings.Geometry, settings.Colors, settings.Noise)
	if err != nil {
		return nil, err
	}

	sc.input, err = camera.FromProvider(deps, conf.Camera)
	if err != nil {
		return nil, err
	}

	return sc, nil
}

type StripCamera struct {
	resource.AlwaysRebuild
	resource.TriviallyCloseable

	name   resource.Name
	conf   *Config
	logger logging.Logger

	input      camera.Camera
	perception *Perception
}

func (sc *StripCamera) Image(ctx context.Context, mimeType string, extra map[string]interface{}) ([]byte, camera.ImageMetadata, error) {
	return camera.GetImageFromGetImages(ctx, nil, sc, extra, nil)
}

func (sc *StripCamera) Images(ctx context.Context, filterSourceNames []string, extra map[string]interface{}) ([]camera.NamedImage, resource.ResponseMetadata, error) {
	ni, rm, err := sc.input.Images(ctx, nil, extra)
	if err != nil {
		return nil, rm, err
	}

	if len(ni) == 0 {
		return nil, rm, fmt.Errorf("no images returned from input camera")
	}

	srcImg, err := ni[0].Image(ctx)
	if err != nil {
		return nil, rm, err
	}

	dst, err := StripDebugImage(srcImg, sc.perception)
	if err != nil {
		return nil, rm, err
	}

	result, err := camera.NamedImageFromImage(dst, ni[0].SourceName, "", data.Annotations{})
	if err != nil {
		return nil, rm, err
	}
	return []camera.NamedImage{result}, rm, nil
}

// StripDebugImage draws the scan band, the cleaned masks and each color's estimate on
// top of the frame.
func StripDebugImage(srcImg image.Image, p *Perception) (image.Image, error) {
	res, err := p.Process(srcImg)
	if err != nil {
		return nil, err
	}

	bounds := srcImg.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), srcImg, bounds.Min, draw.Src)

	strip := p.Geometry().Rect()

	for i, mask := range res.Masks {
		tint := maskColors[i%len(maskColors)]
		for y, row := range mask {
			for x, v := range row {
				if v {
					dst.Set(strip.Min.X+x, strip.Min.Y+y, tint)
				}
			}
		}
	}

	red := color.RGBA{255, 0, 0, 255}
	drawRect(dst, strip, red)

	for i, o := range res.Observations {
		tint := maskColors[i%len(maskColors)]
		label := fmt.Sprintf("%s: -", o.Label)
		if o.Usable {
			drawColumn(dst, strip, strip.Min.X+o.Column, tint)
			label = fmt.Sprintf("%s: %d", o.Label, o.Column)
			if o.Estimate.HasBlob {
				label += fmt.Sprintf(" peak %d blob %d", o.Estimate.Peak, o.Estimate.Blob.Area)
			}
		}

		textY := strip.Min.Y - 4 - 14*(len(res.Observations)-1-i)
		if textY < 13 {
			textY = strip.Max.Y + 13 + 14*i
		}
		drawString(dst, strip.Min.X, textY, label, tint)
	}

	return dst, nil
}

func drawRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		dst.Set(x, r.Min.Y, c)
		dst.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		dst.Set(r.Min.X, y, c)
		dst.Set(r.Max.X-1, y, c)
	}
}

// drawColumn marks x across the band, extending a few pixels past it.
func drawColumn(dst *image.RGBA, r image.Rectangle, x int, c color.Color) {
	for y := r.Min.Y - 6; y < r.Max.Y+6; y++ {
		dst.Set(x, y, c)
	}
}

func drawString(dst *image.RGBA, x, y int, s string, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(s)
}

func (sc *StripCamera) DoCommand(ctx context.Context, cmd map[string]interface{}) (map[string]interface{}, error) {
	return nil, fmt.Errorf("DoCommand not supported")
}

func (sc *StripCamera) NextPointCloud(ctx context.Context, extra map[string]interface{}) (pointcloud.PointCloud, error) {
	return nil, fmt.Errorf("NextPointCloud not supported")
}

func (sc *StripCamera) Properties(ctx context.Context) (camera.Properties, error) {
	return camera.Properties{}, nil
}

func (sc *StripCamera) Geometries(ctx context.Context, extra map[string]interface{}) ([]spatialmath.Geometry, error) {
	return nil, nil
}

func (sc *StripCamera) Name() resource.Name {
	return sc.name
}
