// Package metrics exposes validation outcomes as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NuHepMC/ReferenceImplementation/internal/model"
	lferrors "github.com/NuHepMC/ReferenceImplementation/pkg/errors"
	"github.com/NuHepMC/ReferenceImplementation/pkg/hooks"
	"github.com/NuHepMC/ReferenceImplementation/pkg/validation"
)

const namespace = "nuhepmc"

// Outcome label values.
const (
	OutcomeConformant    = "conformant"
	OutcomeNonConformant = "non-conformant"
	OutcomeUnreadable    = "unreadable"
)

// Collector holds the validation metrics. Each collector registers on its
// own registry so tests and embedders do not share global state.
type Collector struct {
	registry *prometheus.Registry

	files    *prometheus.CounterVec
	events   prometheus.Counter
	failures *prometheus.CounterVec
	warnings *prometheus.CounterVec
	duration prometheus.Histogram
}

// New creates a collector on a fresh registry.
func New() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		files: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_validated_total",
				Help:      "Total number of files validated, by outcome",
			},
			[]string{"outcome"},
		),
		events: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_validated_total",
				Help:      "Total number of events validated",
			},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Total number of validation failures, by rule",
			},
			[]string{"rule", "category"},
		),
		warnings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "warnings_total",
				Help:      "Total number of advisory warnings, by rule",
			},
			[]string{"rule"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_duration_seconds",
				Help:      "Time taken to validate one file",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
	}
}

// Registry returns the registry the collectors are registered on.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Attach registers the collector's hooks on m.
func (c *Collector) Attach(m *hooks.Manager) {
	m.OnRun(func(_ context.Context, _ *validation.RunInfo, warnings []lferrors.Warning) {
		for _, w := range warnings {
			c.warnings.WithLabelValues(string(w.Rule)).Inc()
		}
	})
	m.OnEvent(func(context.Context, *model.Event, []*lferrors.Failure) {
		c.events.Inc()
	})
	m.OnFailure(func(_ context.Context, f *lferrors.Failure) {
		c.failures.WithLabelValues(string(f.Rule), string(f.Category())).Inc()
	})
	m.OnDone(func(_ context.Context, s hooks.Summary) {
		c.files.WithLabelValues(Outcome(s)).Inc()
		c.duration.Observe(s.Duration.Seconds())
	})
}

// Outcome returns the outcome label for a finished validation.
func Outcome(s hooks.Summary) string {
	switch {
	case s.ReadErr != nil:
		return OutcomeUnreadable
	case s.Failures > 0:
		return OutcomeNonConformant
	default:
		return OutcomeConformant
	}
}

// Handler serves the collector's metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
