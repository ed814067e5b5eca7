package session

import (
	"time"

	"github.com/ivlev/stagekeys/internal/transform"
)

type EventKind int

const (
	ObjectAdded EventKind = iota
	ObjectRemoved
	StateChanged
	SelectionChanged
	KeyframesChanged
	PlaybackStarted
	FrameApplied
	PlaybackStopped
)

var eventNames = [...]string{
	ObjectAdded:      "object_added",
	ObjectRemoved:    "object_removed",
	StateChanged:     "state_changed",
	SelectionChanged: "selection_changed",
	KeyframesChanged: "keyframes_changed",
	PlaybackStarted:  "playback_started",
	FrameApplied:     "frame_applied",
	PlaybackStopped:  "playback_stopped",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Event describes a change to the session. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind       EventKind
	ObjectID   string
	KeyframeID string
	Selected   string
	Cursor     int
	Transition time.Duration
	Snapshot   transform.Snapshot // FrameApplied and StateChanged carry a copy
	Completed  bool               // PlaybackStopped: the sequence ran to its end
}

// Observer receives session events. Observers run on the session's execution
// context and must not call back into the Session.
type Observer func(Event)
