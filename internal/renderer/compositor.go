package renderer

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/ivlev/stagekeys/internal/transform"
)

// Layer is one object to draw: its pixels and its transform
type Layer struct {
	ID    string
	Image image.Image
	State transform.State
}

// Compositor draws stage frames
type Compositor struct {
	Width, Height int
	Background    colorful.Color
	Scaler        draw.Transformer
}

// NewCompositor creates a compositor for a width x height stage. background
// is a hex colour such as "#101014".
func NewCompositor(width, height int, background string) (*Compositor, error) {
	bg, err := colorful.Hex(background)
	if err != nil {
		return nil, fmt.Errorf("background colour %q: %w", background, err)
	}
	return &Compositor{
		Width:      width,
		Height:     height,
		Background: bg,
		Scaler:     draw.ApproxBiLinear,
	}, nil
}

// Bounds returns the stage rectangle.
func (c *Compositor) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// Compose clears dst and draws layers in stacking order: ascending zIndex,
// ties kept in the given order.
func (c *Compositor) Compose(dst draw.Image, layers []Layer) {
	r, g, b := c.Background.Clamped().RGB255()
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.RGBA{r, g, b, 255}), image.Point{}, draw.Src)

	ordered := make([]Layer, len(layers))
	copy(ordered, layers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].State.ZIndex < ordered[j].State.ZIndex
	})

	for _, l := range ordered {
		c.drawLayer(dst, l)
	}
}

func (c *Compositor) drawLayer(dst draw.Image, l Layer) {
	if l.Image == nil {
		return
	}
	sr := cropRect(l.Image.Bounds(), l.State.Crop)
	if sr.Empty() {
		return
	}
	m, ok := layerMatrix(l.Image.Bounds(), l.State)
	if !ok {
		return
	}
	c.Scaler.Transform(dst, m, l.Image, sr, draw.Over, nil)
}

// cropRect applies the percentage insets to the source bounds.
func cropRect(b image.Rectangle, crop *transform.Crop) image.Rectangle {
	if crop == nil {
		return b
	}
	w, h := float64(b.Dx()), float64(b.Dy())
	// Overlapping insets leave nothing visible, so no image.Rect canonicalising
	r := image.Rectangle{
		Min: image.Pt(b.Min.X+int(math.Round(w*crop.Left/100)), b.Min.Y+int(math.Round(h*crop.Top/100))),
		Max: image.Pt(b.Max.X-int(math.Round(w*crop.Right/100)), b.Max.Y-int(math.Round(h*crop.Bottom/100))),
	}
	if r.Empty() {
		return image.Rectangle{}
	}
	return r.Intersect(b)
}

// layerMatrix maps source pixels to stage space. The image is stretched to
// the object's box, then scaled and rotated about the box centre, then moved
// to its position. It reports false for a degenerate (zero-area) mapping.
func layerMatrix(b image.Rectangle, st transform.State) (f64.Aff3, bool) {
	srcW, srcH := float64(b.Dx()), float64(b.Dy())
	if srcW == 0 || srcH == 0 {
		return f64.Aff3{}, false
	}
	kx, ky := st.Width/srcW, st.Height/srcH
	sx, sy := st.ScaleX*kx, st.ScaleY*ky
	if math.Abs(sx*sy) < 1e-9 {
		return f64.Aff3{}, false
	}

	sin, cos := math.Sincos(st.Rotation * math.Pi / 180)
	cx, cy := st.Width/2, st.Height/2
	mx, my := float64(b.Min.X), float64(b.Min.Y)
	// Box-local offset of the source origin, relative to the centre
	ox := -st.ScaleX * (kx*mx + cx)
	oy := -st.ScaleY * (ky*my + cy)

	return f64.Aff3{
		cos * sx, -sin * sy, st.X + cx + cos*ox - sin*oy,
		sin * sx, cos * sy, st.Y + cy + sin*ox + cos*oy,
	}, true
}
