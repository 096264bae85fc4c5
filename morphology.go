package linefollow

// Mask is a binary image indexed [y][x].
type Mask [][]bool

// NewMask returns an empty width x height mask.
func NewMask(width, height int) Mask {
	mask := make(Mask, height)
	for y := range height {
		mask[y] = make([]bool, width)
	}
	return mask
}

func (m Mask) Height() int {
	return len(m)
}

func (m Mask) Width() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Count returns the number of set pixels.
func (m Mask) Count() int {
	n := 0
	for _, row := range m {
		for _, v := range row {
			if v {
				n++
			}
		}
	}
	return n
}

// NoiseConfig sets the square kernel sizes used by RemoveNoise.
type NoiseConfig struct {
	ErodeKernel  int `json:"erode_kernel"`
	DilateKernel int `json:"dilate_kernel"`
}

// DefaultNoiseConfig is a 4x4 erosion followed by a 6x6 dilation.
func DefaultNoiseConfig() NoiseConfig {
	return NoiseConfig{ErodeKernel: 4, DilateKernel: 6}
}

// RemoveNoise opens the mask: one erosion, then one dilation with the larger kernel.
func RemoveNoise(mask Mask, cfg NoiseConfig) Mask {
	eroded := ErodeMask(mask, cfg.ErodeKernel, cfg.ErodeKernel)
	return DilateMask(eroded, cfg.DilateKernel, cfg.DilateKernel)
}

// ErodeMask keeps a pixel only when every in-frame pixel under the kw x kh kernel
// is set. The kernel anchor is (kw/2, kh/2).
func ErodeMask(mask Mask, kw, kh int) Mask {
	return morph(mask, kw, kh, true)
}

// DilateMask sets a pixel when any in-frame pixel under the kw x kh kernel is set.
func DilateMask(mask Mask, kw, kh int) Mask {
	return morph(mask, kw, kh, false)
}

func morph(mask Mask, kw, kh int, erode bool) Mask {
	width, height := mask.Width(), mask.Height()
	result := NewMask(width, height)
	ax, ay := kw/2, kh/2

	for y := range height {
		for x := range width {
			// erode looks for an unset pixel, dilate for a set one
			found := false
			for ky := 0; ky < kh && !found; ky++ {
				sy := y + ky - ay
				if sy < 0 || sy >= height {
					continue
				}
				for kx := 0; kx < kw; kx++ {
					sx := x + kx - ax
					if sx < 0 || sx >= width {
						continue
					}
					if mask[sy][sx] != erode {
						found = true
						break
					}
				}
			}
			result[y][x] = found != erode
		}
	}

	return result
}
