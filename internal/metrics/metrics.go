package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shinji-kodama/contractbot-workspace/internal/model"
)

// Component label values.
const (
	ComponentSync      = "sync"
	ComponentBootstrap = "bootstrap"
	ComponentService   = "service"
)

// Outcome label values. A failed step is labelled with its error kind, or
// OutcomeError when it has none.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Recorder holds the metrics of one run in its own registry.
type Recorder struct {
	reg *prometheus.Registry
	now func() time.Time

	runs        *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

// New creates a Recorder with an empty registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		reg: reg,
		now: time.Now,
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contractbot_workspace_runs_total",
				Help: "Total number of lifecycle steps run, by outcome",
			},
			[]string{"component", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contractbot_workspace_step_duration_seconds",
				Help:    "Lifecycle step duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"component"},
		),
		lastSuccess: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "contractbot_workspace_last_success_timestamp_seconds",
				Help: "Unix timestamp of the last successful lifecycle step",
			},
			[]string{"component"},
		),
	}
}

// Observe records one finished step that began at start.
func (r *Recorder) Observe(component string, start time.Time, err error) {
	end := r.now()
	r.duration.WithLabelValues(component).Observe(end.Sub(start).Seconds())
	r.runs.WithLabelValues(component, Outcome(err)).Inc()
	if err == nil {
		r.lastSuccess.WithLabelValues(component).Set(float64(end.Unix()))
	}
}

// Outcome returns the outcome label for err.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if kind := model.KindOf(err); kind != "" {
		return kind.String()
	}
	return OutcomeError
}

// WriteTextfile atomically writes every recorded metric to path.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
