package linefollow

import (
	"fmt"
	"image"
)

// Perception turns a frame into one observation per configured color.
type Perception struct {
	geometry StripGeometry
	colors   []ColorRange
	noise    NoiseConfig
}

// PerceptionResult carries the intermediate products of one pass, mostly for debugging.
type PerceptionResult struct {
	Strip        *image.NRGBA
	Masks        []Mask
	Observations []Observation
}

// NewPerception validates the color ranges; colors are kept in priority order.
func NewPerception(geometry StripGeometry, colors []ColorRange, noise NoiseConfig) (*Perception, error) {
	if len(colors) == 0 {
		return nil, fmt.Errorf("need at least one color")
	}
	seen := map[string]bool{}
	for _, c := range colors {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("duplicate color %q", c.Name)
		}
		seen[c.Name] = true
	}
	if noise.ErodeKernel <= 0 || noise.DilateKernel <= 0 {
		return nil, fmt.Errorf("kernel sizes must be positive, got erode %d dilate %d", noise.ErodeKernel, noise.DilateKernel)
	}
	return &Perception{geometry: geometry, colors: colors, noise: noise}, nil
}

func (p *Perception) Geometry() StripGeometry {
	return p.geometry
}

func (p *Perception) Colors() []ColorRange {
	return p.colors
}

// Process runs strip extraction, segmentation, noise removal and centroid estimation.
// The only error is a strip that does not fit the frame.
func (p *Perception) Process(frame image.Image) (*PerceptionResult, error) {
	strip, err := ExtractStrip(frame, p.geometry)
	if err != nil {
		return nil, err
	}

	hsv := ToHSV(strip)
	res := &PerceptionResult{
		Strip:        strip,
		Masks:        make([]Mask, 0, len(p.colors)),
		Observations: make([]Observation, 0, len(p.colors)),
	}
	for _, c := range p.colors {
		if c.Disabled {
			res.Masks = append(res.Masks, NewMask(hsv.Width, hsv.Height))
			res.Observations = append(res.Observations, NewObservation(c.Name, Estimate{Column: -1}, false))
			continue
		}
		mask := RemoveNoise(InRange(hsv, c), p.noise)
		res.Masks = append(res.Masks, mask)
		res.Observations = append(res.Observations, NewObservation(c.Name, EstimateCentroid(mask), true))
	}
	return res, nil
}
