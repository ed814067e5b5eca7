package script

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ivlev/stagekeys/internal/playback"
	"github.com/ivlev/stagekeys/internal/session"
	"github.com/ivlev/stagekeys/internal/source"
)

func newTestRunner() (*Runner, *session.Session, *playback.ManualClock) {
	clock := playback.NewManualClock(time.Unix(0, 0))
	opts := session.DefaultOptions()
	opts.Clock = clock
	s := session.New(opts)

	r := NewRunner(s, func(ctx context.Context, d time.Duration) error {
		clock.Advance(d)
		return nil
	})
	r.open = func(st Step) (source.Source, error) {
		if st.Action == "qr" {
			return openStep(st)
		}
		switch st.Path {
		case "missing.png":
			return nil, os.ErrNotExist
		case "page.png":
			img := image.NewGray(image.Rect(0, 0, 200, 200))
			draw.Draw(img, image.Rect(50, 50, 150, 150), image.NewUniform(color.White), image.Point{}, draw.Src)
			return source.NewStatic(st.Path, img), nil
		}
		return source.NewStatic(st.Path, image.NewRGBA(image.Rect(0, 0, 100, 100))), nil
	}
	return r, s, clock
}

func TestReadWriteScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	sc := &Script{
		Version: "1.0",
		Steps: []Step{
			{Action: "add", As: "logo", Path: "logo.png"},
			{Action: "move", Target: "$logo", X: 10, Y: 20},
			{Action: "record", DurationMs: 1500},
		},
	}

	if err := WriteScript(sc, path); err != nil {
		t.Fatalf("WriteScript failed: %v", err)
	}
	read, err := ReadScript(path)
	if err != nil {
		t.Fatalf("ReadScript failed: %v", err)
	}
	if diff := cmp.Diff(sc, read); diff != "" {
		t.Errorf("script mismatch (-want +got):\n%s", diff)
	}
	if read.Steps[2].Duration() != 1500*time.Millisecond {
		t.Errorf("duration = %v", read.Steps[2].Duration())
	}
}

func TestRunRecordAndPlay(t *testing.T) {
	r, s, _ := newTestRunner()
	defer s.Close()

	sc := &Script{Steps: []Step{
		{Action: "add", As: "a", Path: "a.png"},
		{Action: "move", Target: "$a", X: 10, Y: 10},
		{Action: "record", As: "k1", DurationMs: 2000},
		{Action: "move", Target: "$a", X: 50, Y: 50},
		{Action: "record", DurationMs: 1000},
		{Action: "play"},
		{Action: "wait", DurationMs: 2000},
	}}

	if err := r.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	a, ok := r.Ref("a")
	if !ok {
		t.Fatal("object ref not bound")
	}
	if _, ok := r.Ref("k1"); !ok {
		t.Error("keyframe ref not bound")
	}

	st, _ := s.State(a)
	if st.X != 50 || st.Y != 50 || !s.Playing() {
		t.Errorf("after 2000ms: state %+v, playing %v", st, s.Playing())
	}

	// A wait without a duration covers the whole sequence
	if err := r.Run(context.Background(), &Script{Steps: []Step{{Action: "wait"}}}); err != nil {
		t.Fatal(err)
	}
	if s.Playing() {
		t.Error("still playing after waiting the sequence length")
	}
}

func TestRunEditingSteps(t *testing.T) {
	r, s, _ := newTestRunner()
	defer s.Close()

	sc := &Script{Steps: []Step{
		{Action: "add", As: "a", Path: "a.png"},
		{Action: "add", As: "b", Path: "b.png"},
		{Action: "resize", Target: "$a", Width: 300, Height: 40, Free: true},
		{Action: "rotate", Target: "$a", Degrees: 30},
		{Action: "flip", Target: "$a", Axis: "vertical"},
		{Action: "forward", Target: "$a"},
		{Action: "forward", Target: "$a"},
		{Action: "backward", Target: "$b"},
		{Action: "crop", Target: "$a", Edge: "left", Percent: 25},
		{Action: "drag", Target: "$b", X: 100, Y: 100, GrabX: 10, GrabY: 20},
		{Action: "select", Target: "$b"},
	}}

	if err := r.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	a, _ := r.Ref("a")
	b, _ := r.Ref("b")
	sa, _ := s.State(a)
	sb, _ := s.State(b)

	if sa.Width != 300 || sa.Height != 40 || sa.Rotation != 30 || sa.ScaleY != -1 || sa.ZIndex != 3 {
		t.Errorf("a = %+v", sa)
	}
	if sa.Crop == nil || sa.Crop.Left != 25 {
		t.Errorf("a crop = %+v", sa.Crop)
	}
	if sb.X != 90 || sb.Y != 80 || sb.ZIndex != 1 {
		t.Errorf("b = %+v", sb)
	}
	if s.Selected() != b {
		t.Errorf("selected %q, want %q", s.Selected(), b)
	}
}

func TestRunKeyframeSteps(t *testing.T) {
	r, s, _ := newTestRunner()
	defer s.Close()

	sc := &Script{Steps: []Step{
		{Action: "add", As: "a", Path: "a.png"},
		{Action: "record", As: "k1"},
		{Action: "move", Target: "$a", X: 1, Y: 1},
		{Action: "record", As: "k2"},
		{Action: "update", Target: "$k1", DurationMs: 700},
		{Action: "delete", Target: "$k2"},
		{Action: "load", Target: "$k1"},
	}}

	if err := r.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	list := s.Keyframes()
	if len(list) != 1 || list[0].Duration != 700*time.Millisecond {
		t.Fatalf("keyframes = %+v", list)
	}
	k1, _ := r.Ref("k1")
	if s.ActiveKeyframe() != k1 {
		t.Error("k1 not active after load")
	}
}

func TestRunSkipsUnknownTargets(t *testing.T) {
	r, s, _ := newTestRunner()
	defer s.Close()

	sc := &Script{Steps: []Step{
		{Action: "move", Target: "$nobody", X: 1},
		{Action: "remove", Target: "ghost"},
		{Action: "update", Target: "ghost"},
		{Action: "add", As: "a", Path: "a.png"},
	}}
	if err := r.Run(context.Background(), sc); err != nil {
		t.Fatalf("unknown targets aborted the run: %v", err)
	}
	if len(s.Objects()) != 1 {
		t.Error("steps after a missing target did not run")
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		sc   *Script
		is   error
	}{
		{"unknown action", &Script{Steps: []Step{{Action: "add", Path: "a.png"}, {Action: "explode"}}}, ErrUnknownAction},
		{"open failure", &Script{Steps: []Step{{Action: "add", Path: "missing.png"}}}, os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, s, _ := newTestRunner()
			defer s.Close()

			if err := r.Run(context.Background(), tt.sc); !errors.Is(err, tt.is) {
				t.Errorf("expected %v, got %v", tt.is, err)
			}
			if len(s.Objects()) != 0 {
				t.Error("failed run left objects on stage")
			}
		})
	}

	r, s, _ := newTestRunner()
	defer s.Close()
	sc := &Script{Steps: []Step{{Action: "add", As: "a", Path: "a.png"}, {Action: "flip", Target: "$a", Axis: "diagonal"}}}
	if err := r.Run(context.Background(), sc); err == nil {
		t.Error("bad flip axis accepted")
	}
}

func TestRunQR(t *testing.T) {
	r, s, _ := newTestRunner()
	defer s.Close()

	sc := &Script{Steps: []Step{{Action: "qr", As: "code", Text: "https://example.com", Size: 128}}}
	if err := r.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	id, _ := r.Ref("code")
	st, ok := s.State(id)
	if !ok || st.Width != 200 || st.Height != 200 {
		t.Errorf("qr state = %+v", st)
	}
}

func TestRunCancelled(t *testing.T) {
	r, s, _ := newTestRunner()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx, &Script{Steps: []Step{{Action: "record"}}}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Error(err)
	}
}

func TestRunAutoCrop(t *testing.T) {
	r, s, _ := newTestRunner()
	defer s.Close()

	sc := &Script{Steps: []Step{
		{Action: "add", As: "page", Path: "page.png"},
		{Action: "add", As: "blank", Path: "blank.png"},
		{Action: "autocrop", Target: "$page"},
		{Action: "autocrop", Target: "$blank"},
		{Action: "autocrop", Target: "ghost"},
	}}
	if err := r.Run(context.Background(), sc); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	page, _ := r.Ref("page")
	st, _ := s.State(page)
	if st.Crop == nil {
		t.Fatal("page not cropped")
	}
	for _, v := range []float64{st.Crop.Top, st.Crop.Right, st.Crop.Bottom, st.Crop.Left} {
		if math.Abs(v-23.5) > 1e-9 {
			t.Errorf("crop = %+v", st.Crop)
			break
		}
	}

	blank, _ := r.Ref("blank")
	if st, _ := s.State(blank); st.Crop != nil {
		t.Errorf("blank image cropped: %+v", st.Crop)
	}
}
