package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "console_http_in_flight_requests",
		Help: "In-flight console HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_http_requests_total",
			Help: "Total number of console HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_http_request_duration_seconds",
			Help:    "Console HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_upstream_requests_total",
			Help: "Calls made to the enrollment backend, by endpoint and outcome.",
		},
		[]string{"endpoint", "status"},
	)

	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "console_upstream_request_duration_seconds",
			Help:    "Enrollment backend call latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	upstreamBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "console_upstream_breaker_state",
		Help: "Backend circuit breaker state (0=closed, 1=half-open, 2=open).",
	})

	sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "console_sessions_active",
		Help: "Sessions with an armed inactivity watcher.",
	})

	sessionsEnded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "console_sessions_ended_total",
			Help: "Ended sessions by reason.",
		},
		[]string{"reason"},
	)
)

// Register adds every console collector to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		httpInFlight, httpRequestsTotal, httpRequestDuration,
		upstreamRequestsTotal, upstreamRequestDuration, upstreamBreakerState,
		sessionsActive, sessionsEnded,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RPS, latency and in-flight requests. Routes are labelled
// by their mux template so ids do not explode the label space.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlight.Inc()
		defer httpInFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		status := strconv.Itoa(sw.code)
		httpRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
	})
}

// ObserveUpstream records one backend call. status 0 means no response.
func ObserveUpstream(endpoint string, status int, d time.Duration) {
	label := strconv.Itoa(status)
	if status == 0 {
		label = "unreachable"
	}
	upstreamRequestsTotal.WithLabelValues(endpoint, label).Inc()
	upstreamRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func SetBreakerState(v float64) { upstreamBreakerState.Set(v) }

func SessionStarted() { sessionsActive.Inc() }

func SessionEnded(reason string) {
	sessionsActive.Dec()
	sessionsEnded.WithLabelValues(reason).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
