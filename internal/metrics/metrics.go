// Package metrics exposes Prometheus counters for computations, climate
// resolution and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "heatloss"

// Metrics owns its registry so several instances can coexist in tests.
// All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	computations *prometheus.CounterVec
	buildingW    *prometheus.GaugeVec
	climateSteps *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	mqttCommands *prometheus.CounterVec
	modbusWrites prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computations_total",
			Help:      "Heat loss computations by scope (room, building).",
		}, []string{"scope"}),
		buildingW: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "building_watts",
			Help:      "Last computed building heat loss by component.",
		}, []string{"component"}),
		climateSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "climate_step_outcomes_total",
			Help:      "Climate resolver step outcomes.",
		}, []string{"step", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		mqttCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mqtt_commands_total",
			Help:      "MQTT set commands by field and result.",
		}, []string{"field", "result"}),
		modbusWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modbus_writes_total",
			Help:      "Accepted Modbus register writes.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.computations,
		m.buildingW,
		m.climateSteps,
		m.httpRequests,
		m.httpDuration,
		m.mqttCommands,
		m.modbusWrites,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RoomComputed() {
	if m == nil {
		return
	}
	m.computations.WithLabelValues("room").Inc()
}

func (m *Metrics) BuildingComputed(transmissionW, ventilationW, totalW float64) {
	if m == nil {
		return
	}
	m.computations.WithLabelValues("building").Inc()
	m.buildingW.WithLabelValues("transmission").Set(transmissionW)
	m.buildingW.WithLabelValues("ventilation").Set(ventilationW)
	m.buildingW.WithLabelValues("total").Set(totalW)
}

// StepOutcome records one climate resolver step result.
func (m *Metrics) StepOutcome(step, outcome string) {
	if m == nil {
		return
	}
	m.climateSteps.WithLabelValues(step, outcome).Inc()
}

func (m *Metrics) MQTTCommand(field string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.mqttCommands.WithLabelValues(field, result).Inc()
}

func (m *Metrics) ModbusWrite() {
	if m == nil {
		return
	}
	m.modbusWrites.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests under a fixed route label.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		m.httpRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
