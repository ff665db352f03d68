// Package metrics records build observations. Components take a Recorder and
// default to NoopRecorder, so metrics stay optional.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels what happened to a single content item.
type Outcome string

const (
	OutcomeWritten   Outcome = "written"
	OutcomeDiscarded Outcome = "discarded"
	OutcomeFailed    Outcome = "failed"
)

// Recorder receives build observations.
type Recorder interface {
	IncItem(kind string, outcome Outcome)
	ObserveBuildDuration(d time.Duration)
	SetLastBuildTimestamp(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncItem(string, Outcome)             {}
func (NoopRecorder) ObserveBuildDuration(time.Duration) {}
func (NoopRecorder) SetLastBuildTimestamp(time.Time)    {}

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg           *prom.Registry
	items         *prom.CounterVec
	buildDuration prom.Histogram
	lastBuild     prom.Gauge
}

// NewPrometheusRecorder creates and registers the build metrics on reg,
// or on a fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		items: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "pagekit",
			Name:      "items_total",
			Help:      "Content items processed, by kind and outcome",
		}, []string{"kind", "outcome"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: "pagekit",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		}),
		lastBuild: prom.NewGauge(prom.GaugeOpts{
			Namespace: "pagekit",
			Name:      "last_build_timestamp_seconds",
			Help:      "Unix time the last build finished",
		}),
	}
	reg.MustRegister(pr.items, pr.buildDuration, pr.lastBuild)
	return pr
}

func (p *PrometheusRecorder) IncItem(kind string, outcome Outcome) {
	p.items.WithLabelValues(kind, string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) SetLastBuildTimestamp(t time.Time) {
	p.lastBuild.Set(float64(t.Unix()))
}

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}
