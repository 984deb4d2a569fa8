package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks envelope workflow counters. A nil *Metrics records nothing.
type Metrics struct {
	cacheLookups   *prometheus.CounterVec
	computeSeconds prometheus.Histogram
	uploads        *prometheus.CounterVec
	tempEvents     *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envelope",
			Name:      "cache_lookups_total",
			Help:      "Envelope cache lookups by result.",
		}, []string{"result"}),
		computeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "envelope",
			Name:      "compute_seconds",
			Help:      "Time spent loading rows and computing an envelope.",
			Buckets:   prometheus.DefBuckets,
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envelope",
			Name:      "uploads_total",
			Help:      "Dataset uploads by kind and result.",
		}, []string{"kind", "result"}),
		tempEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "envelope",
			Name:      "temp_events_total",
			Help:      "Temp comparison dataset lifecycle events.",
		}, []string{"event"}),
	}
	if reg != nil {
		reg.MustRegister(m.cacheLookups, m.computeSeconds, m.uploads, m.tempEvents)
	}
	return m
}

func (m *Metrics) recordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) recordCompute(start time.Time) {
	if m == nil {
		return
	}
	m.computeSeconds.Observe(time.Since(start).Seconds())
}

func (m *Metrics) recordUpload(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.uploads.WithLabelValues(kind, result).Inc()
}

// RecordTempEvent counts staged, promoted, discarded and swept temp datasets.
func (m *Metrics) RecordTempEvent(event string) {
	if m == nil {
		return
	}
	m.tempEvents.WithLabelValues(event).Inc()
}
