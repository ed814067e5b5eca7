package script

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/stagekeys/internal/analyzer"
	"github.com/ivlev/stagekeys/internal/session"
	"github.com/ivlev/stagekeys/internal/source"
	"github.com/ivlev/stagekeys/internal/transform"
)

// WaitFunc blocks for d of stage time.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Sleep waits on the wall clock.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Runner replays scripts against a session.
type Runner struct {
	Session  *session.Session
	Wait     WaitFunc
	Workers  int
	Detector analyzer.Detector

	open func(Step) (source.Source, error)
	refs map[string]string
}

func NewRunner(s *session.Session, wait WaitFunc) *Runner {
	if wait == nil {
		wait = Sleep
	}
	return &Runner{
		Session:  s,
		Wait:     wait,
		Workers:  4,
		Detector: analyzer.NewContrastDetector(),
		open:     openStep,
		refs:     make(map[string]string),
	}
}

var actions = map[string]bool{
	"add": true, "qr": true, "remove": true, "select": true, "deselect": true,
	"move": true, "drag": true, "resize": true, "rotate": true, "flip": true,
	"forward": true, "backward": true, "crop": true, "autocrop": true,
	"record": true, "update": true, "load": true, "delete": true,
	"play": true, "stop": true, "wait": true,
}

// Run executes every step in order. Sources are opened up front in
// parallel. Steps that target an unknown object or keyframe are logged and
// skipped; any other failure aborts the run.
func (r *Runner) Run(ctx context.Context, sc *Script) error {
	for i, st := range sc.Steps {
		if !actions[st.Action] {
			return fmt.Errorf("step %d: %w: %q", i+1, ErrUnknownAction, st.Action)
		}
	}

	sources, err := r.prefetch(ctx, sc.Steps)
	if err != nil {
		return err
	}

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			closeAll(sources[i:])
			return err
		}
		err := r.step(ctx, st, sources[i])
		if errors.Is(err, transform.ErrNotFound) {
			log.Printf("[!] Step %d (%s): %v", i+1, st.Action, err)
			continue
		}
		if err != nil {
			closeAll(sources[i+1:])
			return fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
		}
	}
	return nil
}

// Ref returns the id registered under name by an `as:` field.
func (r *Runner) Ref(name string) (string, bool) {
	id, ok := r.refs[name]
	return id, ok
}

func (r *Runner) resolve(target string) string {
	if name, ok := strings.CutPrefix(target, "$"); ok {
		if id, ok := r.refs[name]; ok {
			return id
		}
	}
	return target
}

func (r *Runner) bind(st Step, id string) {
	if st.As != "" && id != "" {
		r.refs[st.As] = id
	}
}

func (r *Runner) prefetch(ctx context.Context, steps []Step) ([]source.Source, error) {
	sources := make([]source.Source, len(steps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, r.Workers))
	for i, st := range steps {
		if st.Action != "add" && st.Action != "qr" {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := r.open(st)
			if err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, st.Action, err)
			}
			sources[i] = src
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		closeAll(sources)
		return nil, err
	}
	return sources, nil
}

func openStep(st Step) (source.Source, error) {
	if st.Action == "qr" {
		return source.NewQR(st.Text, st.Size)
	}
	if st.Page > 0 && strings.HasSuffix(strings.ToLower(st.Path), ".pdf") {
		return source.OpenPDFPage(st.Path, st.Page-1, source.DefaultDPI)
	}
	return source.Open(st.Path)
}

func closeAll(sources []source.Source) {
	for _, src := range sources {
		if src != nil {
			src.Close()
		}
	}
}

func (r *Runner) step(ctx context.Context, st Step, src source.Source) error {
	s := r.Session
	target := r.resolve(st.Target)

	switch st.Action {
	case "add", "qr":
		id := s.AddObject(src)
		r.bind(st, id)
		fmt.Printf("[+] Added %s as %s\n", src.Name(), id)
	case "remove":
		if !s.RemoveObject(target) {
			return fmt.Errorf("object %s: %w", target, transform.ErrNotFound)
		}
	case "select":
		if !s.Select(target) {
			log.Printf("[!] Could not select %s", target)
		}
	case "deselect":
		s.Select("")
	case "move":
		return s.Move(target, st.X, st.Y)
	case "drag":
		return s.DragTo(target, session.Point{X: st.X, Y: st.Y}, session.Point{X: st.GrabX, Y: st.GrabY})
	case "resize":
		return s.Resize(target, st.Width, st.Height, st.Free)
	case "rotate":
		return s.Rotate(target, st.Degrees)
	case "flip":
		switch st.Axis {
		case "", "horizontal", "x":
			return s.FlipHorizontal(target)
		case "vertical", "y":
			return s.FlipVertical(target)
		default:
			return fmt.Errorf("unknown flip axis %q", st.Axis)
		}
	case "forward":
		return s.BringForward(target)
	case "backward":
		return s.SendBackward(target)
	case "crop":
		return s.SetCropEdge(target, transform.Edge(st.Edge), st.Percent)
	case "autocrop":
		return r.autoCrop(target)
	case "record":
		id := s.RecordKeyframe(st.Duration())
		r.bind(st, id)
		fmt.Printf("[*] Keyframe %d recorded\n", len(s.Keyframes()))
	case "update":
		if !s.UpdateKeyframe(target, st.Duration()) {
			return fmt.Errorf("keyframe %s: %w", target, transform.ErrNotFound)
		}
	case "load":
		if !s.LoadKeyframe(target) {
			log.Printf("[!] Could not load keyframe %s", target)
		}
	case "delete":
		if !s.DeleteKeyframe(target) {
			return fmt.Errorf("keyframe %s: %w", target, transform.ErrNotFound)
		}
	case "play":
		if !s.Play() {
			log.Printf("[!] Nothing to play: no keyframes recorded")
		}
	case "stop":
		s.Stop()
	case "wait":
		d := st.Duration()
		if d <= 0 {
			d = sequenceLength(s)
		}
		return r.Wait(ctx, d)
	}
	return nil
}

// autoCrop trims the object's margins down to its detected content.
func (r *Runner) autoCrop(id string) error {
	obj, ok := r.Session.Object(id)
	if !ok {
		return fmt.Errorf("object %s: %w", id, transform.ErrNotFound)
	}
	if obj.Source == nil {
		return nil
	}
	img, err := obj.Source.Image()
	if err != nil {
		return err
	}
	regions, err := r.Detector.Detect(img)
	if err != nil {
		return err
	}
	crop, ok := analyzer.ContentCrop(img, regions)
	if !ok {
		log.Printf("[!] No content found in %s, crop unchanged", obj.Name)
		return nil
	}
	fmt.Printf("[*] Auto-crop %s: top %.1f%% right %.1f%% bottom %.1f%% left %.1f%%\n",
		obj.Name, crop.Top, crop.Right, crop.Bottom, crop.Left)
	return r.Session.SetCrop(id, crop)
}

// sequenceLength is how long a full playback of the current keyframes takes.
func sequenceLength(s *session.Session) time.Duration {
	var total time.Duration
	for _, k := range s.Keyframes() {
		total += k.Duration
	}
	return total
}
