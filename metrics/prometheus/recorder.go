// Package prommetrics exposes core.MetricsRecorder samples as Prometheus
// counters and histograms.
package prommetrics

import (
	"context"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-shopify-auth/core"
)

// Labels carried by every series. Shop is left out to keep cardinality
// bounded by the app's topic and operation count.
var labelNames = []string{"operation", "status", "topic", "is_online", "delivery_method"}

var defaultBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000}

type Option func(*Recorder)

func WithRegistry(registry *prometheus.Registry) Option {
	return func(r *Recorder) {
		if registry != nil {
			r.registry = registry
		}
	}
}

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = sanitize(namespace)
	}
}

func WithBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

// Recorder lazily registers one vector per metric name.
type Recorder struct {
	registry   *prometheus.Registry
	namespace  string
	buckets    []float64
	counters   *xsync.MapOf[string, *prometheus.CounterVec]
	histograms *xsync.MapOf[string, *prometheus.HistogramVec]
}

func NewRecorder(opts ...Option) *Recorder {
	recorder := &Recorder{
		registry:   prometheus.NewRegistry(),
		buckets:    defaultBuckets,
		counters:   xsync.NewMapOf[string, *prometheus.CounterVec](),
		histograms: xsync.NewMapOf[string, *prometheus.HistogramVec](),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(recorder)
		}
	}
	return recorder
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the recorder registry in the text exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value <= 0 {
		return
	}
	metricName := r.metricName(name)
	if metricName == "" {
		return
	}
	vec, _ := r.counters.LoadOrCompute(metricName, func() *prometheus.CounterVec {
		vec := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricName,
			Help: "Count of " + strings.TrimSpace(name) + " events.",
		}, labelNames)
		return registerOrExisting(r.registry, vec)
	})
	vec.With(labelsFor(tags)).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	metricName := r.metricName(name)
	if metricName == "" {
		return
	}
	vec, _ := r.histograms.LoadOrCompute(metricName, func() *prometheus.HistogramVec {
		vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metricName,
			Help:    "Distribution of " + strings.TrimSpace(name) + ".",
			Buckets: r.buckets,
		}, labelNames)
		return registerOrExisting(r.registry, vec)
	})
	vec.With(labelsFor(tags)).Observe(value)
}

func (r *Recorder) metricName(name string) string {
	name = sanitize(name)
	if name == "" {
		return ""
	}
	if r.namespace != "" && !strings.HasPrefix(name, r.namespace+"_") {
		return r.namespace + "_" + name
	}
	return name
}

func registerOrExisting[C prometheus.Collector](registry *prometheus.Registry, collector C) C {
	if err := registry.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return collector
}

func labelsFor(tags map[string]string) prometheus.Labels {
	labels := make(prometheus.Labels, len(labelNames))
	for _, name := range labelNames {
		labels[name] = strings.TrimSpace(tags[name])
	}
	return labels
}

// sanitize maps a dotted metric name to the Prometheus charset.
func sanitize(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := strings.Trim(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

var _ core.MetricsRecorder = (*Recorder)(nil)
