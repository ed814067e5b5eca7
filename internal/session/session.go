package session

import (
	"log"
	"sync"
	"time"

	"github.com/ivlev/stagekeys/internal/keyframe"
	"github.com/ivlev/stagekeys/internal/playback"
	"github.com/ivlev/stagekeys/internal/registry"
	"github.com/ivlev/stagekeys/internal/source"
	"github.com/ivlev/stagekeys/internal/transform"
)

// Options configures a Session
type Options struct {
	Placement       registry.Placement
	MinSize         float64
	DefaultDuration time.Duration
	Clock           playback.Clock
}

// DefaultOptions matches the stage defaults of the editor.
func DefaultOptions() Options {
	return Options{
		Placement:       registry.DefaultPlacement,
		MinSize:         20,
		DefaultDuration: keyframe.DefaultDuration,
		Clock:           playback.SystemClock{},
	}
}

// Session is one editing session: the objects on stage, their live transform
// state, the recorded keyframes and the playback scheduler.
//
// Every method, and every playback timer callback, runs under a single
// mutex, so a gate check and the mutation it guards happen in one turn.
type Session struct {
	mu sync.Mutex

	opts      Options
	store     *transform.Store
	objects   *registry.Registry
	keyframes *keyframe.Log
	player    *playback.Scheduler
	observers []Observer
	closed    bool
}

// New starts a session. Call Close to tear it down.
func New(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = playback.SystemClock{}
	}
	if opts.Placement.FitBox <= 0 {
		opts.Placement = registry.DefaultPlacement
	}

	store := transform.NewStore()
	s := &Session{
		opts:      opts,
		store:     store,
		objects:   registry.New(store, opts.Placement),
		keyframes: keyframe.NewLog(store),
		player:    playback.NewScheduler(store, opts.Clock),
	}
	s.keyframes.SetDefaultDuration(opts.DefaultDuration)

	s.player.SetExecutor(s.run)
	s.player.OnFrame = func(f playback.Frame) {
		s.emit(Event{
			Kind:       FrameApplied,
			KeyframeID: f.Keyframe.ID,
			Cursor:     f.Index,
			Transition: f.Transition,
			Snapshot:   f.Keyframe.Snapshot,
		})
	}
	s.player.OnStop = func(completed bool) {
		s.emit(Event{Kind: PlaybackStopped, Completed: completed})
	}
	return s
}

// run executes f on the session's execution context. Callbacks arriving
// after Close are dropped.
func (s *Session) run(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	f()
}

// Subscribe registers an observer for all subsequent events.
func (s *Session) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Session) emit(ev Event) {
	for _, o := range s.observers {
		o(ev)
	}
}

// Close stops playback, cancels any pending timer and releases every
// object's source.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.player.Close()
	for _, obj := range s.objects.Objects() {
		if obj.Source == nil {
			continue
		}
		if err := obj.Source.Close(); err != nil {
			log.Printf("[!] Failed to release source %s: %v", obj.Name, err)
		}
	}
	s.closed = true
}

// --- Objects ---

// AddObject places src on the stage and selects it.
func (s *Session) AddObject(src source.Source) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.objects.Create(src)
	s.emit(Event{Kind: ObjectAdded, ObjectID: id})
	s.emit(Event{Kind: SelectionChanged, Selected: id})
	return id
}

// RemoveObject removes the object and releases its source.
func (s *Session) RemoveObject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	selected := s.objects.Selected()
	obj, ok := s.objects.Remove(id)
	if !ok {
		return false
	}
	if obj.Source != nil {
		if err := obj.Source.Close(); err != nil {
			log.Printf("[!] Failed to release source %s: %v", obj.Name, err)
		}
	}
	s.emit(Event{Kind: ObjectRemoved, ObjectID: id})
	if selected == id {
		s.emit(Event{Kind: SelectionChanged})
	}
	return true
}

// Select sets the selection; "" clears it. Ignored during playback.
func (s *Session) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.objects.Select(id) {
		return false
	}
	s.emit(Event{Kind: SelectionChanged, Selected: id})
	return true
}

// ApplyPatch merges patch into the object's live state. It is silently
// ignored during playback and returns transform.ErrNotFound for unknown ids.
func (s *Session) ApplyPatch(id string, patch transform.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(id, patch)
}

func (s *Session) apply(id string, patch transform.Patch) error {
	changed, err := s.store.ApplyPartial(id, patch)
	if err != nil {
		return err
	}
	if changed && !patch.Empty() {
		st, _ := s.store.Get(id)
		s.emit(Event{Kind: StateChanged, ObjectID: id, Snapshot: transform.Snapshot{id: st}})
	}
	return nil
}

// --- Keyframes ---

// RecordKeyframe appends a keyframe of the live state. A non-positive
// duration selects the session default.
func (s *Session) RecordKeyframe(d time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.keyframes.Append(d)
	s.emit(Event{Kind: KeyframesChanged, KeyframeID: id})
	return id
}

// UpdateKeyframe re-captures the live state into keyframe id. A positive d
// also replaces its duration.
func (s *Session) UpdateKeyframe(id string, d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.keyframes.Update(id, d) {
		return false
	}
	s.emit(Event{Kind: KeyframesChanged, KeyframeID: id})
	return true
}

// LoadKeyframe restores keyframe id into the live state for editing.
func (s *Session) LoadKeyframe(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.keyframes.Load(id) {
		return false
	}
	s.clearSelection()
	s.emit(Event{Kind: KeyframesChanged, KeyframeID: id})
	s.emit(Event{Kind: StateChanged, Snapshot: s.store.SnapshotAll()})
	return true
}

func (s *Session) DeleteKeyframe(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.keyframes.Delete(id) {
		return false
	}
	s.emit(Event{Kind: KeyframesChanged, KeyframeID: id})
	return true
}

// --- Playback ---

// Play starts playback of the recorded keyframes. It does nothing when no
// keyframe has been recorded. Keyframes recorded or changed after Play do
// not affect the running playback.
func (s *Session) Play() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.keyframes.List()
	if len(seq) == 0 {
		return false
	}
	s.clearSelection()
	s.emit(Event{Kind: PlaybackStarted, Cursor: 0})
	return s.player.Play(seq)
}

// Stop halts playback. Safe to call while idle.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Stop()
}

func (s *Session) clearSelection() {
	if s.objects.Selected() == "" {
		return
	}
	s.objects.ClearSelection()
	s.emit(Event{Kind: SelectionChanged})
}

// --- Queries ---

// Object looks up a stage object by id.
func (s *Session) Object(id string) (registry.Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects.Lookup(id)
}

func (s *Session) Objects() []registry.Object {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects.Objects()
}

// States returns a copy of the live transform state of every object.
func (s *Session) States() transform.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.SnapshotAll()
}

func (s *Session) State(id string) (transform.State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.objects.Selected()
}

func (s *Session) Keyframes() []keyframe.Keyframe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyframes.List()
}

func (s *Session) ActiveKeyframe() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keyframes.Active()
}

func (s *Session) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Playing()
}

func (s *Session) Cursor() playback.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Cursor()
}

// Transition returns the duration over which the renderer should animate
// into the current state. It is zero outside of playback transitions.
func (s *Session) Transition() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.player.Transition()
}
