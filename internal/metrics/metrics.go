// Package metrics exposes daemon metrics in the Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dronelink/dronelinkd/internal/command"
	"github.com/dronelink/dronelinkd/internal/session"
)

const namespace = "dronelinkd"

// Metrics records command, verification, session and HTTP metrics on its own
// registry.
type Metrics struct {
	registry *prometheus.Registry

	commands        *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	polls           *prometheus.CounterVec
	pollsExhausted  *prometheus.CounterVec
	sessionOpen     prometheus.Gauge
	sessions        prometheus.Counter
	components      *prometheus.GaugeVec
	requests        *prometheus.CounterVec
}

var (
	_ command.PollRecorder      = (*Metrics)(nil)
	_ session.Reporter          = (*Metrics)(nil)
	_ session.ComponentObserver = (*Metrics)(nil)
)

// New creates and registers all collectors, including the Go runtime and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Finished commands by kind and outcome code.",
		}, []string{"kind", "code"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_rejected_total",
			Help:      "Commands refused before they started.",
		}, []string{"kind"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Time from submission to outcome.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_polls_total",
			Help:      "Camera reads made while verifying a capture.",
		}, []string{"check"}),
		pollsExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_exhausted_total",
			Help:      "Verifications that ran out of attempts.",
		}, []string{"check"}),
		sessionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_open",
			Help:      "1 while a drone session is open.",
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Sessions opened since start.",
		}),
		components: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "components_connected",
			Help:      "Connected components of the open session.",
		}, []string{"component"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.commands, m.rejected, m.commandDuration,
		m.polls, m.pollsExhausted,
		m.sessionOpen, m.sessions, m.components,
		m.requests,
	)
	return m
}

// Handler serves the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) PollAttempt(check string)   { m.polls.WithLabelValues(check).Inc() }
func (m *Metrics) PollExhausted(check string) { m.pollsExhausted.WithLabelValues(check).Inc() }

func (m *Metrics) CommandFinished(_ context.Context, r session.CommandReport) {
	kind := string(r.Kind)
	m.commands.WithLabelValues(kind, command.Code(r.Err)).Inc()
	if r.Rejected {
		m.rejected.WithLabelValues(kind).Inc()
		return
	}
	m.commandDuration.WithLabelValues(kind).Observe(r.Duration.Seconds())
}

func (m *Metrics) SessionOpened(*session.Session) {
	m.sessionOpen.Set(1)
	m.sessions.Inc()
}

func (m *Metrics) SessionClosed(*session.Session) {
	m.sessionOpen.Set(0)
	m.components.Reset()
}

func (m *Metrics) ComponentConnected(_ *session.Session, key session.ComponentKey, _ uint) {
	m.components.WithLabelValues(string(key)).Inc()
}

func (m *Metrics) ComponentDisconnected(_ *session.Session, key session.ComponentKey, _ uint) {
	m.components.WithLabelValues(string(key)).Dec()
}

// Middleware counts requests by their chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rw.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
