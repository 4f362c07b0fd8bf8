package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the laser streamer.
type Metrics struct {
	registry          *prometheus.Registry
	framesSentTotal   prometheus.Counter
	packetBytesTotal  prometheus.Counter
	sendErrorsTotal   prometheus.Counter
	effectErrorsTotal prometheus.Counter
	requestsTotal     prometheus.Counter
	errorsTotal       prometheus.Counter
	runningEngines    prometheus.Gauge
	actualFPS         *prometheus.GaugeVec
}

// New creates and registers Prometheus metrics for the streamer.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	framesSentTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "laser_frames_sent_total",
		Help: "Total number of frames transmitted over all streaming engines",
	})
	packetBytesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "laser_packet_bytes_total",
		Help: "Total bytes of stream packets sent over UDP",
	})
	sendErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "laser_send_errors_total",
		Help: "Total number of failed UDP transmissions",
	})
	effectErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "laser_effect_errors_total",
		Help: "Total number of effect chain applications that failed open",
	})
	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "laser_http_requests_total",
		Help: "Total number of HTTP requests received by the control API",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "laser_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	runningEngines := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "laser_running_engines",
		Help: "Number of streaming engines currently running",
	})
	actualFPS := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "laser_actual_fps",
		Help: "Measured frame rate per streaming target",
	}, []string{"target"})

	registry.MustRegister(
		framesSentTotal,
		packetBytesTotal,
		sendErrorsTotal,
		effectErrorsTotal,
		requestsTotal,
		errorsTotal,
		runningEngines,
		actualFPS,
	)

	return &Metrics{
		registry:          registry,
		framesSentTotal:   framesSentTotal,
		packetBytesTotal:  packetBytesTotal,
		sendErrorsTotal:   sendErrorsTotal,
		effectErrorsTotal: effectErrorsTotal,
		requestsTotal:     requestsTotal,
		errorsTotal:       errorsTotal,
		runningEngines:    runningEngines,
		actualFPS:         actualFPS,
	}
}

// IncFramesSent increments the transmitted frame counter.
func (m *Metrics) IncFramesSent() {
	m.framesSentTotal.Inc()
}

// AddPacketBytes adds the size of a transmitted packet.
func (m *Metrics) AddPacketBytes(n int) {
	m.packetBytesTotal.Add(float64(n))
}

// IncSendErrors increments the failed transmission counter.
func (m *Metrics) IncSendErrors() {
	m.sendErrorsTotal.Inc()
}

// IncEffectErrors increments the fail-open effect error counter.
func (m *Metrics) IncEffectErrors() {
	m.effectErrorsTotal.Inc()
}

// IncRequests increments the control API request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the control API error counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// SetRunningEngines sets the running engine gauge.
func (m *Metrics) SetRunningEngines(n int) {
	m.runningEngines.Set(float64(n))
}

// SetActualFPS records the measured frame rate for one target.
func (m *Metrics) SetActualFPS(target string, fps float64) {
	m.actualFPS.WithLabelValues(target).Set(fps)
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g. running engines).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
