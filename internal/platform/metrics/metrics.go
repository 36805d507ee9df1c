package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns its registry, so several can coexist in one process (tests).
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	LabAlertsComputed prometheus.Counter
	LabAbnormalEvents *prometheus.CounterVec
	PatientsCreated   prometheus.Counter
}

func NewCollector(serviceName string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,

		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		LabAlertsComputed: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "lab_alerts_computed_total",
			Help:      "Abnormal lab results returned by alert aggregation.",
		}),

		LabAbnormalEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "lab_abnormal_events_total",
			Help:      "lab.result.abnormal events by publish outcome.",
		}, []string{"outcome"}),

		PatientsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "patients_created_total",
			Help:      "Total number of patient records created.",
		}),
	}
}

// Handler serves the collector's registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) AddAlertsComputed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.LabAlertsComputed.Add(float64(n))
}

// ObserveAbnormalEvent counts a publish attempt; outcome is "published" or "failed".
func (c *Collector) ObserveAbnormalEvent(outcome string) {
	if c == nil {
		return
	}
	c.LabAbnormalEvents.WithLabelValues(outcome).Inc()
}

func (c *Collector) IncPatientsCreated() {
	if c == nil {
		return
	}
	c.PatientsCreated.Inc()
}
