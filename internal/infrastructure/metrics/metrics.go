// Package metrics exposes the gateway's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moodcast"

// Request kinds.
const (
	KindLookup = "lookup"
	KindUpdate = "update"
)

// Drop reasons.
const (
	DropMalformed = "malformed"
	DropUpstream  = "upstream"
	DropPublish   = "publish"
)

// Metrics holds the gateway's collectors on a private registry, so tests
// and multiple gateways in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	dropped         *prometheus.CounterVec
	replies         prometheus.Counter
	moodUpdates     *prometheus.CounterVec
	persistFailures prometheus.Counter
	upstream        *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers all collectors, plus the Go and process
// collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Requests received on the request topic, by kind.",
			},
			[]string{"kind"},
		),
		dropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_dropped_total",
				Help:      "Requests that produced no reply, by reason.",
			},
			[]string{"reason"},
		),
		replies: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "replies_published_total",
				Help:      "Replies published to city topics.",
			},
		),
		moodUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "moodstore",
				Name:      "updates_total",
				Help:      "Mood updates applied, by new mood.",
			},
			[]string{"mood"},
		),
		persistFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "moodstore",
				Name:      "persist_failures_total",
				Help:      "Mood file writes that failed.",
			},
		),
		upstream: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "weather",
				Name:      "request_duration_seconds",
				Help:      "Duration of upstream weather lookups.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10), // 10ms to ~5s
			},
			[]string{"success"},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Status API requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of status API requests.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 10),
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.requests,
		m.dropped,
		m.replies,
		m.moodUpdates,
		m.persistFailures,
		m.upstream,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RequestReceived counts a decoded request.
func (m *Metrics) RequestReceived(kind string) {
	m.requests.WithLabelValues(kind).Inc()
}

// RequestDropped counts a request that produced no reply.
func (m *Metrics) RequestDropped(reason string) {
	m.dropped.WithLabelValues(reason).Inc()
}

// ReplyPublished counts a reply sent to a city topic.
func (m *Metrics) ReplyPublished() {
	m.replies.Inc()
}

// MoodUpdated counts an applied mood update.
func (m *Metrics) MoodUpdated(mood string) {
	m.moodUpdates.WithLabelValues(mood).Inc()
}

// PersistFailed counts a failed mood file write.
func (m *Metrics) PersistFailed() {
	m.persistFailures.Inc()
}

// ObserveUpstream records the duration of a weather lookup.
func (m *Metrics) ObserveUpstream(d time.Duration, ok bool) {
	m.upstream.WithLabelValues(strconv.FormatBool(ok)).Observe(d.Seconds())
}

// ObserveHTTP records one status API request. route is the matched
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
