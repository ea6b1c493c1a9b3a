package fieldquad

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// FrameMetrics is the set of collectors updated by the frame loop.
type FrameMetrics struct {
	Registry         *prometheus.Registry
	Frames           prometheus.Counter
	TickDuration     prometheus.Histogram
	Phase            prometheus.Gauge
	PhaseTransitions prometheus.Counter
	FieldMaps        prometheus.Counter
}

func NewFrameMetrics() *FrameMetrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &FrameMetrics{
		Registry: reg,
		Frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldquad",
			Name:      "frames_total",
			Help:      "Frames drawn and presented.",
		}),
		TickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fieldquad",
			Name:      "tick_duration_seconds",
			Help:      "Time spent inside one tick, excluding the fixed delay.",
			Buckets:   []float64{.001, .002, .005, .01, .02, .033, .05, .1, .25},
		}),
		Phase: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "fieldquad",
			Name:      "phase",
			Help:      "Active geometry phase (0-3 triangles, 4 quad).",
		}),
		PhaseTransitions: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldquad",
			Name:      "phase_transitions_total",
			Help:      "Index buffer uploads caused by phase changes.",
		}),
		FieldMaps: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fieldquad",
			Name:      "field_maps_total",
			Help:      "Map/unmap cycles of the shared field buffer.",
		}),
	}
}

// ObserveTick records the handler duration of one tick.
func (m *FrameMetrics) ObserveTick(_ uint64, took time.Duration) {
	m.TickDuration.Observe(took.Seconds())
}

// NewMetricsServer exposes the registry on /metrics.
func NewMetricsServer(addr string, m *FrameMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
}
