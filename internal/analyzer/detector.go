package analyzer

import (
	"image"

	"github.com/ivlev/stagekeys/internal/transform"
)

// Region is a connected area of high local contrast, in image coordinates
type Region struct {
	Rect image.Rectangle
}

// Detector finds content regions in an image
type Detector interface {
	Detect(img image.Image) ([]Region, error)
}

// ContentCrop returns the crop insets, in percent of img's size, that trim
// img down to the union of regions. ok is false when regions is empty.
func ContentCrop(img image.Image, regions []Region) (crop transform.Crop, ok bool) {
	if len(regions) == 0 {
		return crop, false
	}
	b := img.Bounds()
	if b.Empty() {
		return crop, false
	}

	u := regions[0].Rect
	for _, r := range regions[1:] {
		u = u.Union(r.Rect)
	}
	u = u.Intersect(b)

	w, h := float64(b.Dx()), float64(b.Dy())
	return transform.ClampCrop(transform.Crop{
		Top:    float64(u.Min.Y-b.Min.Y) / h * 100,
		Right:  float64(b.Max.X-u.Max.X) / w * 100,
		Bottom: float64(b.Max.Y-u.Max.Y) / h * 100,
		Left:   float64(u.Min.X-b.Min.X) / w * 100,
	}), true
}
