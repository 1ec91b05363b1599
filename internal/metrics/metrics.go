package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	CacheLookups     *prometheus.CounterVec   // labels: kind, result
	UpstreamRequests *prometheus.CounterVec   // labels: provider, op, outcome
	UpstreamLatency  *prometheus.HistogramVec // labels: provider, op
	QuotesServed     *prometheus.CounterVec   // labels: source
	AllSourcesFailed prometheus.Counter
	Advisories       *prometheus.CounterVec // labels: bucket
	DegradedAdvice   prometheus.Counter
	ExtractedFields  *prometheus.CounterVec // labels: field, status
	RefreshRuns      *prometheus.CounterVec // labels: outcome
}

// New creates the collectors and registers them on reg. A nil reg skips registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecoach_cache_lookups_total",
			Help: "Market cache lookups by data kind and result",
		}, []string{"kind", "result"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecoach_upstream_requests_total",
			Help: "Calls to upstream price providers by outcome",
		}, []string{"provider", "op", "outcome"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tradecoach_upstream_request_duration_seconds",
			Help:    "Upstream price provider latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider", "op"}),
		QuotesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecoach_quotes_served_total",
			Help: "Quotes returned to callers by provenance",
		}, []string{"source"}),
		AllSourcesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecoach_all_sources_unavailable_total",
			Help: "Price requests where every upstream failed",
		}),
		Advisories: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecoach_advisories_total",
			Help: "Coach notes emitted by phrase bucket",
		}, []string{"bucket"}),
		DegradedAdvice: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tradecoach_degraded_advisories_total",
			Help: "Advisories served without indicators",
		}),
		ExtractedFields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecoach_extracted_fields_total",
			Help: "Trade fields extracted from OCR text by status",
		}, []string{"field", "status"}),
		RefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tradecoach_cache_refresh_total",
			Help: "Background cache refreshes by outcome",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.CacheLookups,
			m.UpstreamRequests,
			m.UpstreamLatency,
			m.QuotesServed,
			m.AllSourcesFailed,
			m.Advisories,
			m.DegradedAdvice,
			m.ExtractedFields,
			m.RefreshRuns,
		)
	}
	return m
}

func (m *Metrics) CacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Upstream(provider, op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(provider, op, outcome).Inc()
	m.UpstreamLatency.WithLabelValues(provider, op).Observe(d.Seconds())
}

func (m *Metrics) QuoteServed(source string) {
	if m == nil {
		return
	}
	m.QuotesServed.WithLabelValues(source).Inc()
}

func (m *Metrics) AllSourcesUnavailable() {
	if m == nil {
		return
	}
	m.AllSourcesFailed.Inc()
}

func (m *Metrics) Advisory(bucket string) {
	if m == nil {
		return
	}
	m.Advisories.WithLabelValues(bucket).Inc()
}

func (m *Metrics) Degraded() {
	if m == nil {
		return
	}
	m.DegradedAdvice.Inc()
}

func (m *Metrics) Extracted(field, status string) {
	if m == nil {
		return
	}
	m.ExtractedFields.WithLabelValues(field, status).Inc()
}

func (m *Metrics) Refresh(outcome string) {
	if m == nil {
		return
	}
	m.RefreshRuns.WithLabelValues(outcome).Inc()
}
