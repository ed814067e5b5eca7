package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/stagekeys/internal/config"
	"github.com/ivlev/stagekeys/internal/engine"
	"github.com/ivlev/stagekeys/internal/metrics"
	"github.com/ivlev/stagekeys/internal/playback"
	"github.com/ivlev/stagekeys/internal/publish"
	"github.com/ivlev/stagekeys/internal/script"
	"github.com/ivlev/stagekeys/internal/session"
	"github.com/ivlev/stagekeys/internal/system"
	"github.com/ivlev/stagekeys/internal/video"
)

var buildVersion = "dev"

func main() {
	// Raise system limits (macOS/Linux)
	system.InitResourceLimits()

	dirs := []string{"input/scripts", "input/media", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	configPtr := flag.String("config", "", "Path to a YAML config file")
	scriptPtr := flag.String("script", "", "Path to a YAML script (default: newest file in input/scripts/)")
	exportPtr := flag.String("export", "", "Render the recorded keyframes to this video file (\"auto\" names it in output/)")
	livePtr := flag.Bool("live", false, "Play back in real time instead of simulated time")
	widthPtr := flag.Int("width", 1280, "Stage width")
	heightPtr := flag.Int("height", 720, "Stage height")
	presetPtr := flag.String("preset", "", "Stage preset: 16:9, 9:16, 4:5")
	fpsPtr := flag.Int("fps", 30, "Export FPS")
	workersPtr := flag.Int("workers", runtime.NumCPU(), "Worker goroutines for decoding and rendering")
	qualityPtr := flag.Int("quality", 0, "Video quality (0 - auto, x264: CRF 1-51, VideoToolbox: bitrate = Q*100kbit/s)")
	statsPtr := flag.Bool("stats", false, "Print a performance report after export")
	mqttPtr := flag.String("mqtt", "", "MQTT broker URL for publishing session events")
	metricsPtr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9100")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Config error: %v", err)
		}
		cfg = loaded
	}

	// Flags given explicitly win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "width":
			cfg.Stage.Width = *widthPtr
		case "height":
			cfg.Stage.Height = *heightPtr
		case "fps":
			cfg.Export.FPS = *fpsPtr
		case "workers":
			cfg.Export.Workers = *workersPtr
		case "quality":
			cfg.Export.Quality = *qualityPtr
		case "stats":
			cfg.Export.ShowStats = *statsPtr
		case "mqtt":
			cfg.MQTT.URL = *mqttPtr
		case "metrics-addr":
			cfg.Metrics.Addr = *metricsPtr
		case "export":
			cfg.Export.Output = *exportPtr
		}
	})
	switch *presetPtr {
	case "16:9":
		cfg.Stage.Width, cfg.Stage.Height = 1280, 720
	case "9:16":
		cfg.Stage.Width, cfg.Stage.Height = 720, 1280
	case "4:5":
		cfg.Stage.Width, cfg.Stage.Height = 1080, 1350
	}
	cfg.Live = *livePtr
	cfg.BuildVersion = buildVersion

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] %v", err)
	}

	cfg.ScriptPath = *scriptPtr
	if cfg.ScriptPath == "" {
		latest, err := system.FindLatest("input/scripts", ".yaml", ".yml")
		if err != nil {
			log.Fatalf("[-] Error: %v. Put a script in input/scripts/", err)
		}
		cfg.ScriptPath = latest
		fmt.Printf("[*] Using script: %s\n", cfg.ScriptPath)
	}

	sc, err := script.ReadScript(cfg.ScriptPath)
	if err != nil {
		log.Fatalf("[-] Script error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, sc); err != nil {
		log.Fatalf("[-] %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, sc *script.Script) error {
	opts := session.DefaultOptions()
	opts.Placement.X = cfg.Defaults.X
	opts.Placement.Y = cfg.Defaults.Y
	opts.Placement.FitBox = cfg.Defaults.FitBox
	opts.MinSize = cfg.Defaults.MinSize
	opts.DefaultDuration = cfg.Defaults.Duration()

	var wait script.WaitFunc
	if cfg.Live {
		opts.Clock = playback.SystemClock{}
		wait = script.Sleep
	} else {
		clock := playback.NewManualClock(time.Now())
		opts.Clock = clock
		wait = func(ctx context.Context, d time.Duration) error {
			clock.Advance(d)
			return ctx.Err()
		}
	}

	s := session.New(opts)
	defer s.Close()

	stopped := make(chan struct{}, 1)
	s.Subscribe(func(ev session.Event) {
		switch ev.Kind {
		case session.FrameApplied:
			fmt.Printf("[>] Keyframe %d (transition %dms)\n", ev.Cursor+1, ev.Transition.Milliseconds())
		case session.PlaybackStopped:
			select {
			case stopped <- struct{}{}:
			default:
			}
		}
	})

	if cfg.MQTT.URL != "" {
		client, err := publish.Connect(cfg.MQTT)
		if err != nil {
			return err
		}
		pub := publish.New(client, cfg.MQTT.Topic)
		defer pub.Close()
		s.Subscribe(pub.Observe)
		fmt.Printf("[*] Publishing events to %s (%s/...)\n", cfg.MQTT.URL, cfg.MQTT.Topic)
	}

	if cfg.Metrics.Addr != "" {
		collector := metrics.New()
		s.Subscribe(collector.Observe)
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[!] Metrics server: %v", err)
			}
		}()
		defer srv.Close()
		fmt.Printf("[*] Metrics on %s/metrics\n", cfg.Metrics.Addr)
	}

	runner := script.NewRunner(s, wait)
	runner.Workers = cfg.Export.Workers
	if err := runner.Run(ctx, sc); err != nil {
		return fmt.Errorf("script %s: %w", cfg.ScriptPath, err)
	}

	if cfg.Live && s.Playing() {
		fmt.Println("[*] Waiting for playback to finish...")
		select {
		case <-stopped:
		case <-ctx.Done():
			s.Stop()
			return ctx.Err()
		}
	}

	fmt.Printf("[*] Objects: %d | Keyframes: %d\n", len(s.Objects()), len(s.Keyframes()))

	if cfg.Export.Output == "" {
		return nil
	}
	return export(ctx, cfg, s)
}

func export(ctx context.Context, cfg *config.Config, s *session.Session) error {
	if cfg.Export.Output == "auto" {
		base := strings.TrimSuffix(filepath.Base(cfg.ScriptPath), filepath.Ext(cfg.ScriptPath))
		cleanName := strings.ReplaceAll(base, " ", "_")
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		cfg.Export.Output = filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
	}

	if cfg.Export.Encoder == "" {
		cfg.Export.Encoder = system.GetBestH264Encoder()
		if cfg.Export.Encoder != "libx264" {
			fmt.Printf("[*] Hardware encoder detected: %s\n", cfg.Export.Encoder)
		}
	}
	if cfg.Export.Quality == 0 {
		switch cfg.Export.Encoder {
		case "h264_videotoolbox":
			cfg.Export.Quality = 75
		case "h264_nvenc":
			cfg.Export.Quality = 28
		default:
			cfg.Export.Quality = 23
		}
	}

	exporter := engine.NewExporter(cfg, &video.FFmpegEncoder{})
	if _, err := exporter.Run(ctx, s.Objects(), s.Keyframes()); err != nil {
		if errors.Is(err, engine.ErrEmptySequence) {
			log.Printf("[!] Nothing to export: record at least one keyframe")
			return nil
		}
		return err
	}

	fmt.Printf("[+++] Done! Output: %s\n", cfg.Export.Output)
	return nil
}
