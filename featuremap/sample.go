package featuremap

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
)

// Interpolation selects how a map is read at real-valued coordinates.
type Interpolation string

const (
	// InterpolationNearest reads the closest pixel.
	InterpolationNearest Interpolation = "nearest"
	// InterpolationBilinear blends the four surrounding pixels.
	InterpolationBilinear Interpolation = "bilinear"
)

// ParseInterpolation converts a configuration string to an Interpolation.
// An empty string selects nearest.
func ParseInterpolation(s string) (Interpolation, error) {
	switch Interpolation(s) {
	case "", InterpolationNearest:
		return InterpolationNearest, nil
	case InterpolationBilinear:
		return InterpolationBilinear, nil
	default:
		return "", errors.Errorf("unknown interpolation %q", s)
	}
}

// Sample reads the map at real-valued coordinates. Coordinates outside the map
// are clamped to the border.
//
// Arguments:
//   - x: Column coordinate.
//   - y: Row coordinate.
//   - interp: Interpolation mode.
//
// Returns:
//   - float32: The sampled value.
func (m Map) Sample(x, y float32, interp Interpolation) float32 {
	if interp == InterpolationBilinear {
		return m.bilinear(x, y)
	}
	return m.nearest(x, y)
}

func (m Map) nearest(x, y float32) float32 {
	ix := clamp(int(math32.Floor(x+0.5)), m.width-1)
	iy := clamp(int(math32.Floor(y+0.5)), m.height-1)
	return m.At(ix, iy)
}

func (m Map) bilinear(x, y float32) float32 {
	x = math32.Max(0, math32.Min(x, float32(m.width-1)))
	y = math32.Max(0, math32.Min(y, float32(m.height-1)))

	x0, y0 := int(math32.Floor(x)), int(math32.Floor(y))
	x1, y1 := clamp(x0+1, m.width-1), clamp(y0+1, m.height-1)
	fx, fy := x-float32(x0), y-float32(y0)

	top := m.At(x0, y0)*(1-fx) + m.At(x1, y0)*fx
	bottom := m.At(x0, y1)*(1-fx) + m.At(x1, y1)*fx
	return top*(1-fy) + bottom*fy
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
