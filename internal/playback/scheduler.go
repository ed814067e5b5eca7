package playback

import (
	"time"

	"github.com/ivlev/stagekeys/internal/keyframe"
	"github.com/ivlev/stagekeys/internal/transform"
)

// Cursor is the position of an active playback
type Cursor struct {
	Index  int
	Active bool
}

// Frame describes one keyframe written into the store by playback.
type Frame struct {
	Index      int
	Keyframe   keyframe.Keyframe
	Transition time.Duration // 0 for the first frame, which is shown instantly
}

// Scheduler steps through a keyframe sequence on a timer, writing each
// snapshot into the store. Only one timer is ever outstanding; every new
// schedule, Stop and Close invalidate the previous one, so a stale callback
// that still fires has no effect.
//
// Scheduler is not safe for concurrent use. Timer callbacks are funnelled
// through the executor, which must serialize them with all other calls.
type Scheduler struct {
	store *transform.Store
	clock Clock
	exec  func(func())

	seq        []keyframe.Keyframe
	cursor     int
	playing    bool
	transition time.Duration
	timer      Timer
	gen        uint64

	// OnFrame is called after each snapshot is written to the store.
	OnFrame func(Frame)
	// OnStop is called when playback returns to idle. completed is true when
	// the sequence ran to the end.
	OnStop func(completed bool)
}

func NewScheduler(store *transform.Store, clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		store: store,
		clock: clock,
		exec:  func(f func()) { f() },
	}
}

// SetExecutor sets the function used to run timer callbacks.
func (s *Scheduler) SetExecutor(exec func(func())) {
	s.exec = exec
}

// Play starts playback of seq from its first keyframe, superseding any
// playback in progress. The first snapshot is applied immediately and held
// for its own duration. An empty sequence is ignored.
func (s *Scheduler) Play(seq []keyframe.Keyframe) bool {
	if len(seq) == 0 {
		return false
	}
	s.cancel()

	s.seq = seq
	s.cursor = 0
	s.playing = true
	s.transition = 0
	s.store.SetLocked(true)
	s.store.ReplaceAll(seq[0].Snapshot)
	s.emit()
	s.schedule(seq[0].Duration)
	return true
}

// Stop halts playback. It is a no-op while idle.
func (s *Scheduler) Stop() bool {
	if !s.playing {
		return false
	}
	s.cancel()
	s.finish(false)
	return true
}

// Close cancels any pending timer. The scheduler stays usable.
func (s *Scheduler) Close() {
	s.cancel()
	if s.playing {
		s.finish(false)
	}
}

func (s *Scheduler) Playing() bool {
	return s.playing
}

func (s *Scheduler) Cursor() Cursor {
	return Cursor{Index: s.cursor, Active: s.playing}
}

// Transition returns the duration over which the most recent frame should be
// animated into.
func (s *Scheduler) Transition() time.Duration {
	return s.transition
}

func (s *Scheduler) schedule(d time.Duration) {
	s.cancel()
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() {
		s.exec(func() { s.fire(gen) })
	})
}

func (s *Scheduler) cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) fire(gen uint64) {
	if gen != s.gen || !s.playing {
		return
	}
	s.timer = nil
	s.cursor++
	if s.cursor >= len(s.seq) {
		s.finish(true)
		return
	}

	next := s.seq[s.cursor]
	// The signal changes before the state so observers animate into it
	s.transition = next.Duration
	s.store.ReplaceAll(next.Snapshot)
	s.emit()
	s.schedule(next.Duration)
}

func (s *Scheduler) finish(completed bool) {
	s.playing = false
	s.store.SetLocked(false)
	s.cursor = 0
	s.seq = nil
	s.transition = 0
	s.gen++
	if s.OnStop != nil {
		s.OnStop(completed)
	}
}

func (s *Scheduler) emit() {
	if s.OnFrame == nil {
		return
	}
	s.OnFrame(Frame{
		Index:      s.cursor,
		Keyframe:   s.seq[s.cursor].Clone(),
		Transition: s.transition,
	})
}
