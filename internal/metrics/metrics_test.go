package metrics

import (
	"image"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ivlev/stagekeys/internal/playback"
	"github.com/ivlev/stagekeys/internal/session"
	"github.com/ivlev/stagekeys/internal/source"
)

func TestCollectorCountsPlayback(t *testing.T) {
	clock := playback.NewManualClock(time.Unix(0, 0))
	opts := session.DefaultOptions()
	opts.Clock = clock
	s := session.New(opts)
	defer s.Close()

	c := New()
	s.Subscribe(c.Observe)

	a := s.AddObject(source.NewStatic("a", image.NewRGBA(image.Rect(0, 0, 8, 8))))
	s.AddObject(source.NewStatic("b", image.NewRGBA(image.Rect(0, 0, 8, 8))))
	s.RemoveObject(a)
	s.RecordKeyframe(100 * time.Millisecond)
	s.RecordKeyframe(100 * time.Millisecond)
	s.Play()

	if got := testutil.ToFloat64(c.playing); got != 1 {
		t.Errorf("playing = %v during playback", got)
	}

	clock.Advance(200 * time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"objects", testutil.ToFloat64(c.objects), 1},
		{"frames", testutil.ToFloat64(c.frames), 2},
		{"completed", testutil.ToFloat64(c.completed), 1},
		{"playing", testutil.ToFloat64(c.playing), 0},
		{"keyframe events", testutil.ToFloat64(c.events.WithLabelValues("keyframes_changed")), 2},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestHandler(t *testing.T) {
	c := New()
	c.Observe(session.Event{Kind: session.FrameApplied})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), "stagekeys_frames_applied_total 1") {
		t.Errorf("metrics output missing frame counter:\n%s", body)
	}
}
