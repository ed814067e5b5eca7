package analyzer

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// ContrastDetector finds regions with a Sobel edge pass, grows them by a
// square dilation and reports the bounding box of each connected blob.
type ContrastDetector struct {
	EdgeThreshold float64 // gradient magnitude, 0-255 scale
	MinArea       int     // bounding boxes smaller than this are dropped
	Radius        int     // dilation radius in pixels
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		EdgeThreshold: 30,
		MinArea:       500,
		Radius:        2,
	}
}

func (d *ContrastDetector) Detect(img image.Image) ([]Region, error) {
	b := img.Bounds()
	if b.Dx() < 3 || b.Dy() < 3 {
		return nil, nil
	}
	gray := image.NewGray(b)
	draw.Draw(gray, b, img, b.Min, draw.Src)

	m := edges(gray, d.EdgeThreshold)
	m.dilate(d.Radius)

	var regions []Region
	for _, r := range m.components() {
		if r.Dx()*r.Dy() < d.MinArea {
			continue
		}
		regions = append(regions, Region{Rect: r.Add(b.Min)})
	}
	return regions, nil
}

// mask is a w x h bitmap in local coordinates
type mask struct {
	w, h int
	bits []bool
}

func newMask(w, h int) *mask {
	return &mask{w: w, h: h, bits: make([]bool, w*h)}
}

func edges(gray *image.Gray, threshold float64) *mask {
	w, h := gray.Rect.Dx(), gray.Rect.Dy()
	m := newMask(w, h)
	px := func(x, y int) float64 { return float64(gray.Pix[y*gray.Stride+x]) }

	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := px(x+1, y-1) + 2*px(x+1, y) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x-1, y) - px(x-1, y+1)
			gy := px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1) -
				px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1)
			if math.Hypot(gx, gy) > threshold {
				m.bits[y*w+x] = true
			}
		}
	}
	return m
}

// dilate grows every set pixel into a (2r+1) square, one axis at a time.
func (m *mask) dilate(r int) {
	if r <= 0 {
		return
	}
	tmp := make([]bool, len(m.bits))
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			for k := max(0, x-r); k <= min(m.w-1, x+r); k++ {
				if m.bits[y*m.w+k] {
					tmp[y*m.w+x] = true
					break
				}
			}
		}
	}
	for y := 0; y < m.h; y++ {
		for x := 0; x < m.w; x++ {
			set := false
			for k := max(0, y-r); k <= min(m.h-1, y+r); k++ {
				if tmp[k*m.w+x] {
					set = true
					break
				}
			}
			m.bits[y*m.w+x] = set
		}
	}
}

// components returns the bounding box of every 4-connected blob, in scan
// order of each blob's first pixel.
func (m *mask) components() []image.Rectangle {
	seen := make([]bool, len(m.bits))
	var rects []image.Rectangle
	var queue []int

	for start, set := range m.bits {
		if !set || seen[start] {
			continue
		}
		seen[start] = true
		queue = append(queue[:0], start)
		minX, minY := start%m.w, start/m.w
		maxX, maxY := minX, minY

		for len(queue) > 0 {
			i := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			x, y := i%m.w, i/m.w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for _, n := range [4][2]int{{x - 1, y}, {x + 1, y}, {x, y - 1}, {x, y + 1}} {
				nx, ny := n[0], n[1]
				if nx < 0 || ny < 0 || nx >= m.w || ny >= m.h {
					continue
				}
				j := ny*m.w + nx
				if m.bits[j] && !seen[j] {
					seen[j] = true
					queue = append(queue, j)
				}
			}
		}
		rects = append(rects, image.Rect(minX, minY, maxX+1, maxY+1))
	}
	return rects
}
