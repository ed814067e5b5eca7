package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ivlev/stagekeys/internal/session"
)

// Collector counts session activity. Register Observe with
// Session.Subscribe and serve Handler.
type Collector struct {
	registry  *prometheus.Registry
	events    *prometheus.CounterVec
	frames    prometheus.Counter
	completed prometheus.Counter
	playing   prometheus.Gauge
	objects   prometheus.Gauge
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stagekeys",
			Name:      "events_total",
			Help:      "Session events by kind.",
		}, []string{"kind"}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stagekeys",
			Name:      "frames_applied_total",
			Help:      "Keyframes applied by playback.",
		}),
		completed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stagekeys",
			Name:      "playbacks_completed_total",
			Help:      "Playbacks that reached the last keyframe.",
		}),
		playing: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stagekeys",
			Name:      "playing",
			Help:      "1 while playback is running.",
		}),
		objects: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stagekeys",
			Name:      "objects",
			Help:      "Objects on the stage.",
		}),
	}
	c.registry.MustRegister(
		c.events, c.frames, c.completed, c.playing, c.objects,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

func (c *Collector) Observe(ev session.Event) {
	c.events.WithLabelValues(ev.Kind.String()).Inc()

	switch ev.Kind {
	case session.ObjectAdded:
		c.objects.Inc()
	case session.ObjectRemoved:
		c.objects.Dec()
	case session.PlaybackStarted:
		c.playing.Set(1)
	case session.FrameApplied:
		c.frames.Inc()
	case session.PlaybackStopped:
		c.playing.Set(0)
		if ev.Completed {
			c.completed.Inc()
		}
	}
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
