package session

import (
	"fmt"

	"github.com/ivlev/stagekeys/internal/transform"
)

// Point is a position in stage space
type Point struct {
	X, Y float64
}

// edit reads the state of id and applies the patch built from it, all in one
// turn. Like ApplyPatch it is a silent no-op during playback.
func (s *Session) edit(id string, build func(transform.State) transform.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.Locked() {
		return nil
	}
	st, ok := s.store.Get(id)
	if !ok {
		return fmt.Errorf("edit %q: %w", id, transform.ErrNotFound)
	}
	return s.apply(id, build(st))
}

// Move places the top-left corner of the object at (x, y).
func (s *Session) Move(id string, x, y float64) error {
	return s.ApplyPatch(id, transform.Patch{X: &x, Y: &y})
}

// DragTo moves the object so that the grab offset recorded at pointer-down
// stays under the pointer.
func (s *Session) DragTo(id string, pointer, grab Point) error {
	return s.Move(id, pointer.X-grab.X, pointer.Y-grab.Y)
}

// Resize sets the object's size, floored at the minimum size. Unless free is
// set, the height follows the width to keep the current aspect ratio; the
// floor still applies to the derived height.
func (s *Session) Resize(id string, width, height float64, free bool) error {
	return s.edit(id, func(st transform.State) transform.Patch {
		w, h := transform.ClampSize(width, height, s.opts.MinSize)
		if !free && st.Width > 0 && st.Height > 0 {
			h = max(s.opts.MinSize, w/(st.Width/st.Height))
		}
		return transform.Patch{Width: &w, Height: &h}
	})
}

// ResizeBy grows the object by a pointer delta from its current size.
func (s *Session) ResizeBy(id string, dx, dy float64, free bool) error {
	st, ok := s.State(id)
	if !ok {
		return fmt.Errorf("resize %q: %w", id, transform.ErrNotFound)
	}
	return s.Resize(id, st.Width+dx, st.Height+dy, free)
}

// Rotate sets the rotation in degrees.
func (s *Session) Rotate(id string, degrees float64) error {
	return s.ApplyPatch(id, transform.Patch{Rotation: &degrees})
}

func (s *Session) FlipHorizontal(id string) error {
	return s.edit(id, func(st transform.State) transform.Patch {
		return transform.Patch{ScaleX: transform.Ptr(-st.ScaleX)}
	})
}

func (s *Session) FlipVertical(id string) error {
	return s.edit(id, func(st transform.State) transform.Patch {
		return transform.Patch{ScaleY: transform.Ptr(-st.ScaleY)}
	})
}

// BringForward raises the object one step in the stacking order.
func (s *Session) BringForward(id string) error {
	return s.edit(id, func(st transform.State) transform.Patch {
		return transform.Patch{ZIndex: transform.Ptr(st.ZIndex + 1)}
	})
}

// SendBackward lowers the object one step, never below zero.
func (s *Session) SendBackward(id string) error {
	return s.edit(id, func(st transform.State) transform.Patch {
		return transform.Patch{ZIndex: transform.Ptr(max(0, st.ZIndex-1))}
	})
}

// SetCropEdge sets one crop inset, clamped to [0, 100]. Objects without a
// crop start from no inset on any edge.
func (s *Session) SetCropEdge(id string, edge transform.Edge, percent float64) error {
	var bad bool
	err := s.edit(id, func(st transform.State) transform.Patch {
		var c transform.Crop
		if st.Crop != nil {
			c = *st.Crop
		}
		c, ok := c.WithEdge(edge, percent)
		if !ok {
			bad = true
			return transform.Patch{}
		}
		return transform.Patch{Crop: &c}
	})
	if err == nil && bad {
		return fmt.Errorf("unknown crop edge %q", edge)
	}
	return err
}

// SetCrop replaces all four crop insets, each clamped to [0, 100].
func (s *Session) SetCrop(id string, crop transform.Crop) error {
	return s.edit(id, func(transform.State) transform.Patch {
		c := transform.ClampCrop(crop)
		return transform.Patch{Crop: &c}
	})
}
