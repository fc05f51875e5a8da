// Package metrics exports run results as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
)

// Namespace prefixes every metric name.
const Namespace = "shopcheck"

// Collector records step, audit and diagnostic results on its own registry.
// Safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	stepResults    *prometheus.CounterVec
	auditScore     *prometheus.GaugeVec
	flowDuration   *prometheus.HistogramVec
	harnessHealthy prometheus.Gauge
	siteReachable  prometheus.Gauge
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		stepResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "step_results_total",
				Help:      "Purchase-flow step outcomes",
			},
			[]string{"language", "persona", "step", "status"},
		),
		auditScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "audit_score",
				Help:      "Latest heuristic audit score (0-100)",
			},
			[]string{"kind", "language", "persona"},
		),
		flowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "flow_duration_seconds",
				Help:      "Wall-clock duration of one purchase flow",
				Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"language"},
		),
		harnessHealthy: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "harness_healthy",
			Help:      "1 when the diagnostic harness self-check passed",
		}),
		siteReachable: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "site_reachable",
			Help:      "1 when the storefront answered the reachability probe",
		}),
	}
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveDiagnostics records the diagnostic verdict.
func (c *Collector) ObserveDiagnostics(v core.DiagnosticVerdict) {
	c.harnessHealthy.Set(boolValue(v.HarnessHealthy))
	c.siteReachable.Set(boolValue(v.SiteReachable))
}

// ObserveFlow records every step outcome and the last audit score of each
// kind seen in the flow.
func (c *Collector) ObserveFlow(f *core.FlowResult) {
	for _, step := range f.Steps {
		status := step.Status.String()
		if step.Inconclusive() {
			status = "inconclusive"
		}
		c.stepResults.WithLabelValues(f.Language, f.Persona, step.Name, status).Inc()
	}
	for _, m := range f.Metrics() {
		c.auditScore.WithLabelValues(string(m.Kind), f.Language, f.Persona).Set(float64(m.Score))
	}
	if d := f.EndTime.Sub(f.StartTime); d > 0 {
		c.flowDuration.WithLabelValues(f.Language).Observe(d.Seconds())
	}
}

// WriteTextfile writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	logger.Debug("metrics written to %s", path)
	return nil
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
