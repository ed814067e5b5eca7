package keyframe

import (
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/stagekeys/internal/transform"
)

// DefaultDuration is used when a keyframe is recorded without a duration.
const DefaultDuration = 3000 * time.Millisecond

// Keyframe is a timed snapshot of every object's transform state
type Keyframe struct {
	ID         string
	CapturedAt time.Time // Informational only
	Duration   time.Duration
	Snapshot   transform.Snapshot
}

// Clone returns a copy sharing no state with k.
func (k Keyframe) Clone() Keyframe {
	k.Snapshot = k.Snapshot.Clone()
	return k
}

// Log is the ordered list of recorded keyframes. Insertion order is the
// playback order.
type Log struct {
	store           *transform.Store
	frames          []Keyframe
	active          string
	defaultDuration time.Duration
	now             func() time.Time
	newID           func() string
}

func NewLog(store *transform.Store) *Log {
	return &Log{
		store:           store,
		defaultDuration: DefaultDuration,
		now:             time.Now,
		newID:           uuid.NewString,
	}
}

// SetDefaultDuration changes the duration used by Append(0). Non-positive
// values are ignored.
func (l *Log) SetDefaultDuration(d time.Duration) {
	if d > 0 {
		l.defaultDuration = d
	}
}

// Append captures the live store as a new keyframe at the end of the log and
// makes it active. A non-positive duration selects the default.
func (l *Log) Append(d time.Duration) string {
	if d <= 0 {
		d = l.defaultDuration
	}
	kf := Keyframe{
		ID:         l.newID(),
		CapturedAt: l.now(),
		Duration:   d,
		Snapshot:   l.store.SnapshotAll(),
	}
	l.frames = append(l.frames, kf)
	l.active = kf.ID
	return kf.ID
}

// Update re-captures the live store into keyframe id, keeping its position.
// A positive d also replaces the stored duration.
func (l *Log) Update(id string, d time.Duration) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.frames[i].Snapshot = l.store.SnapshotAll()
	l.frames[i].CapturedAt = l.now()
	if d > 0 {
		l.frames[i].Duration = d
	}
	return true
}

// Load writes keyframe id back into the store and makes it active. It does
// nothing while the store is locked for playback.
func (l *Log) Load(id string) bool {
	if l.store.Locked() {
		return false
	}
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.store.ReplaceAll(l.frames[i].Snapshot)
	l.active = id
	return true
}

// Delete removes keyframe id. The store is left untouched.
func (l *Log) Delete(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.frames = append(l.frames[:i], l.frames[i+1:]...)
	if l.active == id {
		l.active = ""
	}
	return true
}

func (l *Log) Lookup(id string) (Keyframe, bool) {
	i := l.index(id)
	if i < 0 {
		return Keyframe{}, false
	}
	return l.frames[i].Clone(), true
}

// List returns copies of all keyframes in playback order.
func (l *Log) List() []Keyframe {
	out := make([]Keyframe, len(l.frames))
	for i, kf := range l.frames {
		out[i] = kf.Clone()
	}
	return out
}

func (l *Log) Len() int {
	return len(l.frames)
}

// Active returns the id of the active keyframe, or "".
func (l *Log) Active() string {
	return l.active
}

func (l *Log) index(id string) int {
	for i, kf := range l.frames {
		if kf.ID == id {
			return i
		}
	}
	return -1
}
