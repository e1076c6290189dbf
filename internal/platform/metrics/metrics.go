// Package metrics exposes Prometheus collectors for the label service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "labels"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	RendersTotal   *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	Unresolved     prometheus.Counter

	PDFTotal    *prometheus.CounterVec
	PDFDuration prometheus.Histogram
	PDFBytes    prometheus.Histogram

	ImportsTotal     *prometheus.CounterVec
	ImportedProducts *prometheus.CounterVec

	EventsPublished *prometheus.CounterVec
	ExportsArchived *prometheus.CounterVec

	StartTime prometheus.Gauge
}

// New registers the collectors, plus the Go runtime and process collectors, on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the service collectors on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})
	m.HTTPRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	m.RendersTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "renders_total",
		Help:      "Template renders by mode (preview, pdf, cli).",
	}, []string{"mode"})
	m.RenderDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "render_duration_seconds",
		Help:      "Template engine latency.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	}, []string{"mode"})
	m.Unresolved = factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "unresolved_placeholders_total",
		Help:      "Placeholders left in rendered output.",
	})

	m.PDFTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pdf_generated_total",
		Help:      "PDF generations by outcome.",
	}, []string{"outcome"})
	m.PDFDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pdf_duration_seconds",
		Help:      "Headless browser print latency.",
		Buckets:   []float64{.1, .25, .5, 1, 2, 5, 10, 30},
	})
	m.PDFBytes = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "pdf_size_bytes",
		Help:      "Size of generated PDFs.",
		Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
	})

	m.ImportsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "imports_total",
		Help:      "Product imports by source (json, csv) and outcome.",
	}, []string{"source", "outcome"})
	m.ImportedProducts = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "imported_products_total",
		Help:      "Products stored by imports.",
	}, []string{"source"})

	m.EventsPublished = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Pub/Sub events by type and outcome.",
	}, []string{"type", "outcome"})
	m.ExportsArchived = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exports_archived_total",
		Help:      "PDFs archived to object storage by outcome.",
	}, []string{"outcome"})

	m.StartTime = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "start_time_seconds",
		Help:      "Unix time the process started.",
	})
	m.StartTime.SetToCurrentTime()
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

func (m *Metrics) ObserveRender(mode string, duration time.Duration, unresolved int) {
	if m == nil {
		return
	}
	m.RendersTotal.WithLabelValues(mode).Inc()
	m.RenderDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if unresolved > 0 {
		m.Unresolved.Add(float64(unresolved))
	}
}

func (m *Metrics) ObservePDF(err error, duration time.Duration, size int) {
	if m == nil {
		return
	}
	if err != nil {
		m.PDFTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	m.PDFTotal.WithLabelValues(OutcomeOK).Inc()
	m.PDFDuration.Observe(duration.Seconds())
	m.PDFBytes.Observe(float64(size))
}

func (m *Metrics) ObserveImport(source string, count int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.ImportsTotal.WithLabelValues(source, OutcomeError).Inc()
		return
	}
	m.ImportsTotal.WithLabelValues(source, OutcomeOK).Inc()
	m.ImportedProducts.WithLabelValues(source).Add(float64(count))
}

func (m *Metrics) ObserveEvent(eventType string, err error) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(eventType, outcome(err)).Inc()
}

func (m *Metrics) ObserveExport(err error) {
	if m == nil {
		return
	}
	m.ExportsArchived.WithLabelValues(outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
