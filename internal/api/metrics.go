package api

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/roofwatch-core/internal/ratelimit"
)

const metricsNamespace = "roofwatch"

// metrics holds the admission counters on a registry owned by the server,
// so tests and multiple servers in one process never collide.
type metrics struct {
	registry *prometheus.Registry

	// rejections counts every request a gate turned away.
	rejections *prometheus.CounterVec

	// rateLimitChecks counts every counted request per policy.
	rateLimitChecks *prometheus.CounterVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "admission_rejections_total",
				Help:      "Requests rejected by the admission pipeline, by gate and reason",
			},
			[]string{"gate", "reason"},
		),
		rateLimitChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "ratelimit_checks_total",
				Help:      "Rate limit decisions, by policy and outcome",
			},
			[]string{"policy", "allowed"},
		),
	}

	m.registry.MustRegister(
		m.rejections,
		m.rateLimitChecks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// handler serves the registry in the Prometheus exposition format.
func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// recordRejection counts a classified failure and forwards it to telemetry.
func (s *Server) recordRejection(f failure) {
	s.metrics.rejections.WithLabelValues(f.gate, f.reason).Inc()
	if s.recorder != nil {
		s.recorder.WriteAdmissionDecision(f.gate, f.reason, f.status)
	}
}

// recordRateLimit counts one limiter decision.
func (s *Server) recordRateLimit(policy string, res ratelimit.Result) {
	s.metrics.rateLimitChecks.WithLabelValues(policy, strconv.FormatBool(res.Allowed)).Inc()
	if s.recorder != nil {
		s.recorder.WriteRateLimitCheck(policy, res.Allowed, res.Remaining)
	}
}
