// Package metrics exposes the shield's Prometheus instruments. Every method is
// safe on a nil *Metrics so components can run without instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "asthma_shield"

// Command results.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	ticksTotal        prometheus.Counter
	tickDuration      prometheus.Histogram
	commandsTotal     *prometheus.CounterVec
	sequencesTotal    *prometheus.CounterVec
	actuatorState     *prometheus.GaugeVec
	sensorReading     *prometheus.GaugeVec
}

// New registers all instruments on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "control_ticks_total",
			Help:      "Total evaluation passes run by the control loop.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "control_tick_duration_seconds",
			Help:      "Histogram of evaluation pass durations, including device commands.",
			Buckets:   prometheus.DefBuckets,
		}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuator_commands_total",
			Help:      "Actuator commands issued by actuator and result.",
		}, []string{"actuator", "result"}),
		sequencesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_runs_total",
			Help:      "Timed sequence outcomes by sequence and result.",
		}, []string{"sequence", "result"}),
		actuatorState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "actuator_state",
			Help:      "Last commanded actuator value (fan: 1 on, relay: 1 on).",
		}, []string{"actuator"}),
		sensorReading: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sensor_reading",
			Help:      "Latest sensor reading; absent readings are not updated.",
		}, []string{"sensor"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.ticksTotal,
		m.tickDuration,
		m.commandsTotal,
		m.sequencesTotal,
		m.actuatorState,
		m.sensorReading,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency per matched gin route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Tick(d time.Duration) {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
	m.tickDuration.Observe(d.Seconds())
}

func (m *Metrics) Command(actuator string, ok bool) {
	if m == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultFailed
	}
	m.commandsTotal.WithLabelValues(actuator, result).Inc()
}

// Sequence counts a sequence outcome (started, completed, failed, rejected).
func (m *Metrics) Sequence(name, result string) {
	if m == nil {
		return
	}
	m.sequencesTotal.WithLabelValues(name, result).Inc()
}

func (m *Metrics) SetActuator(actuator string, v float64) {
	if m == nil {
		return
	}
	m.actuatorState.WithLabelValues(actuator).Set(v)
}

// ObserveSensor records a reading; nil readings leave the gauge untouched.
func (m *Metrics) ObserveSensor(sensor string, v *float64) {
	if m == nil || v == nil {
		return
	}
	m.sensorReading.WithLabelValues(sensor).Set(*v)
}
