package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/stagekeys/internal/config"
	"github.com/ivlev/stagekeys/internal/keyframe"
	"github.com/ivlev/stagekeys/internal/registry"
	"github.com/ivlev/stagekeys/internal/renderer"
	"github.com/ivlev/stagekeys/internal/system"
	"github.com/ivlev/stagekeys/internal/transform"
	"github.com/ivlev/stagekeys/internal/video"
)

// ErrEmptySequence is returned when there is nothing to export.
var ErrEmptySequence = errors.New("engine: no keyframes to export")

// Exporter renders a recorded keyframe sequence to a video file.
type Exporter struct {
	Config  *config.Config
	Encoder video.VideoEncoder
}

func NewExporter(cfg *config.Config, ve video.VideoEncoder) *Exporter {
	return &Exporter{Config: cfg, Encoder: ve}
}

// Report summarises one export run.
type Report struct {
	Frames   int
	Length   time.Duration
	Decode   time.Duration
	Render   time.Duration
	Total    time.Duration
	Skipped  int
	Realtime float64
}

// FrameCount returns how many frames cover length at fps, including both
// the first and the final state.
func FrameCount(length time.Duration, fps int) int {
	return int(math.Ceil(length.Seconds()*float64(fps))) + 1
}

// Run decodes every object's image, walks the timeline at the configured
// frame rate and streams composed frames to the encoder.
func (p *Exporter) Run(ctx context.Context, objects []registry.Object, frames []keyframe.Keyframe) (Report, error) {
	var rep Report
	if len(frames) == 0 {
		return rep, ErrEmptySequence
	}
	startTime := time.Now()

	params := p.Config.ExportParams()
	workers := max(1, p.Config.Export.Workers)

	comp, err := renderer.NewCompositor(params.Width, params.Height, p.Config.Stage.Background)
	if err != nil {
		return rep, err
	}

	images, skipped, err := decodeAll(ctx, objects, workers)
	if err != nil {
		return rep, err
	}
	rep.Skipped = skipped
	rep.Decode = time.Since(startTime)

	timeline := renderer.NewTimeline(frames)
	rep.Length = timeline.Duration()
	rep.Frames = FrameCount(rep.Length, params.FPS)

	fmt.Println("--- [EXPORT] ---")
	fmt.Printf("[*] Objects: %d | Keyframes: %d | Length: %.2fs\n", len(objects), len(frames), rep.Length.Seconds())
	fmt.Printf("[*] Resolution: %dx%d @ %d FPS | Frames: %d\n", params.Width, params.Height, params.FPS, rep.Frames)
	fmt.Println("----------------")

	renderStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	out := make(chan *image.RGBA, workers)

	g.Go(func() error {
		return p.Encoder.Encode(gctx, out, p.Config.Export.Output, params)
	})

	g.Go(func() error {
		defer close(out)
		for first := 0; first < rep.Frames; first += workers {
			n := min(workers, rep.Frames-first)
			batch := make([]*image.RGBA, n)

			var rg errgroup.Group
			for i := range batch {
				idx := first + i
				rg.Go(func() error {
					at := time.Duration(float64(idx) / float64(params.FPS) * float64(time.Second))
					dst := system.GetImage(comp.Bounds())
					comp.Compose(dst, layers(objects, images, timeline.StateAt(at)))
					batch[i] = dst
					return nil
				})
			}
			rg.Wait()

			for _, frame := range batch {
				select {
				case out <- frame:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			if (first/workers)%30 == 0 {
				fmt.Printf("[>] Rendered: %d/%d\n", first+n, rep.Frames)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return rep, fmt.Errorf("export failed: %w", err)
	}
	rep.Render = time.Since(renderStart)
	rep.Total = time.Since(startTime)
	if rep.Total > 0 {
		rep.Realtime = rep.Length.Seconds() / rep.Total.Seconds()
	}

	if p.Config.Export.ShowStats {
		p.printReport(rep)
	}
	return rep, nil
}

// decodeAll loads object images concurrently. Objects whose image cannot be
// loaded are skipped and counted.
func decodeAll(ctx context.Context, objects []registry.Object, workers int) (map[string]image.Image, int, error) {
	decoded := make([]image.Image, len(objects))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, obj := range objects {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			img, err := obj.Source.Image()
			if err != nil {
				log.Printf("[!] Error decoding %s (%s): %v", obj.Name, obj.ID, err)
				return nil
			}
			decoded[i] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	images := make(map[string]image.Image, len(objects))
	skipped := 0
	for i, obj := range objects {
		if decoded[i] == nil {
			skipped++
			continue
		}
		images[obj.ID] = decoded[i]
	}
	return images, skipped, nil
}

// layers pairs decoded images with their state for one frame. States for
// objects that no longer exist are ignored.
func layers(objects []registry.Object, images map[string]image.Image, snap transform.Snapshot) []renderer.Layer {
	out := make([]renderer.Layer, 0, len(objects))
	for _, obj := range objects {
		img, ok := images[obj.ID]
		if !ok {
			continue
		}
		st, ok := snap[obj.ID]
		if !ok {
			continue
		}
		out = append(out, renderer.Layer{ID: obj.ID, Image: img, State: st})
	}
	return out
}

func (p *Exporter) printReport(rep Report) {
	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Decoding: %.2fs\n"+
			"Rendering + Encoding: %.2fs\n"+
			"Frames: %d (%.2fx realtime)\n",
		p.Config.BuildVersion, rep.Total.Seconds(), rep.Decode.Seconds(), rep.Render.Seconds(), rep.Frames, rep.Realtime,
	)
	if st, err := system.ReadProcessStats(); err == nil {
		report += st.String() + "\n"
	}
	report += "----------------------------\n"
	fmt.Print(report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Output: %s | Frames: %d | Total: %.2fs | Render: %.2fs\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		p.Config.Export.Output,
		rep.Frames,
		rep.Total.Seconds(),
		rep.Render.Seconds(),
	)

	f, err := os.OpenFile("benchmark.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Printf("[!] Could not write benchmark.log: %v\n", err)
	}
}
