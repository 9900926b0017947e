// Package metrics exposes Prometheus collectors for the audit service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auditsTotal               *prometheus.CounterVec
	auditDurationSeconds      *prometheus.HistogramVec
	navigationsTotal          *prometheus.CounterVec
	generativeFallbacksTotal  prometheus.Counter
	httpRequestsTotal         *prometheus.CounterVec
	httpRequestDurationSecond *prometheus.HistogramVec
	activeAudits              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pageaudit_audits_total",
				Help: "Total number of audits run, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		auditDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pageaudit_audit_duration_seconds",
				Help:    "Histogram of end-to-end audit durations, labeled by status.",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"status"},
		)

		navigationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pageaudit_browser_navigations_total",
				Help: "Total browser navigations, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		generativeFallbacksTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pageaudit_generative_fallbacks_total",
				Help: "Times the heuristic generator substituted for the generative service.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSecond = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeAudits = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "pageaudit_active_audits",
				Help: "Number of audits currently in flight.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAudit records one finished audit.
func ObserveAudit(site string, status string, duration time.Duration) {
	if auditsTotal == nil {
		return
	}
	auditsTotal.WithLabelValues(SanitizeSite(site), status).Inc()
	auditDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveNavigation records a browser navigation outcome.
func ObserveNavigation(outcome string) {
	if navigationsTotal == nil {
		return
	}
	navigationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveGenerativeFallback counts a heuristic substitution.
func ObserveGenerativeFallback() {
	if generativeFallbacksTotal == nil {
		return
	}
	generativeFallbacksTotal.Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSecond.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveAudits increments the in-flight audit gauge.
func IncActiveAudits() {
	if activeAudits != nil {
		activeAudits.Inc()
	}
}

// DecActiveAudits decrements the in-flight audit gauge.
func DecActiveAudits() {
	if activeAudits != nil {
		activeAudits.Dec()
	}
}
