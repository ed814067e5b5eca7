package renderer

import (
	"math"
	"time"

	"github.com/fogleman/ease"

	"github.com/ivlev/stagekeys/internal/keyframe"
	"github.com/ivlev/stagekeys/internal/transform"
)

// Interpolate blends two snapshots at progress t (0..1). Objects missing
// from `from` appear at their target state; objects missing from `to` are
// dropped, as they would be when the store is replaced.
func Interpolate(from, to transform.Snapshot, t float64) transform.Snapshot {
	t = ease.Linear(clamp01(t))

	out := make(transform.Snapshot, len(to))
	for id, dst := range to {
		src, ok := from[id]
		if !ok {
			out[id] = dst.Clone()
			continue
		}
		out[id] = interpolateState(src, dst, t)
	}
	return out
}

func interpolateState(a, b transform.State, t float64) transform.State {
	s := transform.State{
		X:        lerp(a.X, b.X, t),
		Y:        lerp(a.Y, b.Y, t),
		Width:    lerp(a.Width, b.Width, t),
		Height:   lerp(a.Height, b.Height, t),
		Rotation: lerp(a.Rotation, b.Rotation, t),
		ScaleX:   lerp(a.ScaleX, b.ScaleX, t),
		ScaleY:   lerp(a.ScaleY, b.ScaleY, t),
		ZIndex:   int(math.Round(lerp(float64(a.ZIndex), float64(b.ZIndex), t))),
	}

	// A missing crop animates like a zero inset
	if a.Crop != nil || b.Crop != nil {
		var ca, cb transform.Crop
		if a.Crop != nil {
			ca = *a.Crop
		}
		if b.Crop != nil {
			cb = *b.Crop
		}
		s.Crop = &transform.Crop{
			Top:    lerp(ca.Top, cb.Top, t),
			Right:  lerp(ca.Right, cb.Right, t),
			Bottom: lerp(ca.Bottom, cb.Bottom, t),
			Left:   lerp(ca.Left, cb.Left, t),
		}
		if t >= 1 && b.Crop == nil {
			s.Crop = nil
		}
	}
	return s
}

// Timeline maps elapsed playback time to the rendered stage state, following
// the scheduler: the first keyframe is held for its own duration, and every
// later keyframe is animated into over its own duration.
type Timeline struct {
	frames []keyframe.Keyframe
	starts []time.Duration
	total  time.Duration
}

func NewTimeline(frames []keyframe.Keyframe) *Timeline {
	tl := &Timeline{frames: frames, starts: make([]time.Duration, len(frames))}
	for i, kf := range frames {
		tl.starts[i] = tl.total
		tl.total += kf.Duration
	}
	return tl
}

// Duration is the time from Play until playback returns to idle.
func (tl *Timeline) Duration() time.Duration {
	return tl.total
}

func (tl *Timeline) Len() int {
	return len(tl.frames)
}

// StateAt returns the interpolated snapshot at elapsed time.
func (tl *Timeline) StateAt(elapsed time.Duration) transform.Snapshot {
	n := len(tl.frames)
	if n == 0 {
		return transform.Snapshot{}
	}
	if n == 1 || elapsed < tl.starts[1] {
		return tl.frames[0].Snapshot.Clone()
	}
	if elapsed >= tl.total {
		return tl.frames[n-1].Snapshot.Clone()
	}

	// Transition into keyframe i runs from starts[i] for frames[i].Duration
	i := n - 1
	for j := 1; j < n; j++ {
		if elapsed < tl.starts[j] {
			i = j - 1
			break
		}
	}
	d := tl.frames[i].Duration
	if d <= 0 {
		return tl.frames[i].Snapshot.Clone()
	}
	t := float64(elapsed-tl.starts[i]) / float64(d)
	return Interpolate(tl.frames[i-1].Snapshot, tl.frames[i].Snapshot, t)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func clamp01(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}
