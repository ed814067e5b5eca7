package transform

import "math"

// Edge names one side of a crop rectangle
type Edge string

const (
	EdgeTop    Edge = "top"
	EdgeRight  Edge = "right"
	EdgeBottom Edge = "bottom"
	EdgeLeft   Edge = "left"
)

// ClampPercent limits v to [0, 100]. NaN becomes 0.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(100, math.Max(0, v))
}

// ClampCrop clamps each inset independently. Overlapping insets are allowed.
func ClampCrop(c Crop) Crop {
	return Crop{
		Top:    ClampPercent(c.Top),
		Right:  ClampPercent(c.Right),
		Bottom: ClampPercent(c.Bottom),
		Left:   ClampPercent(c.Left),
	}
}

// WithEdge returns c with one edge set to the clamped value v.
func (c Crop) WithEdge(edge Edge, v float64) (Crop, bool) {
	v = ClampPercent(v)
	switch edge {
	case EdgeTop:
		c.Top = v
	case EdgeRight:
		c.Right = v
	case EdgeBottom:
		c.Bottom = v
	case EdgeLeft:
		c.Left = v
	default:
		return c, false
	}
	return c, true
}

// ClampSize applies the minimum size floor to both dimensions.
func ClampSize(width, height, floor float64) (float64, float64) {
	return math.Max(floor, width), math.Max(floor, height)
}
