// metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// reqDuration is a histogram of HTTP request durations in seconds, labeled
// by route pattern, method, and status code.
var reqDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests.",
		Buckets: []float64{0.01, 0.1, 0.3, 1.2, 5},
	},
	[]string{"path", "method", "status"},
)

// SubmissionsTotal counts submission attempts by outcome:
// accepted, duplicate, invalid, failed.
var SubmissionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "leadcapture_submissions_total",
		Help: "Lead submission attempts by outcome.",
	},
	[]string{"outcome"},
)

// DuplicateConflictsTotal counts persistence-level duplicate-key conflicts,
// which the workflow treats as success but are worth watching.
var DuplicateConflictsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "leadcapture_duplicate_conflicts_total",
		Help: "Duplicate-key conflicts swallowed during lead persistence.",
	},
)

// RegisterDefault registers the Go runtime and process collectors plus the
// service's own metrics. Call once at startup.
func RegisterDefault(logger *zap.Logger) {
	mustRegister(logger, "Go collector", collectors.NewGoCollector())
	mustRegister(logger, "process collector", collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	mustRegister(logger, "HTTP request histogram", reqDuration)
	mustRegister(logger, "submissions counter", SubmissionsTotal)
	mustRegister(logger, "duplicate conflicts counter", DuplicateConflictsTotal)
}

// mustRegister tolerates AlreadyRegisteredError (tests, repeated calls) and
// treats anything else as a startup configuration failure.
func mustRegister(logger *zap.Logger, name string, c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return
		}
		if logger != nil {
			logger.Fatal("failed to register "+name, zap.Error(err))
		} else {
			panic("metrics: failed to register " + name + ": " + err.Error())
		}
	}
}

// HTTPMetrics is a middleware that records request duration into the
// http_request_duration_seconds histogram. It uses the chi route pattern
// (e.g. "/api/leads") instead of the raw path to keep label cardinality
// bounded. Place it after the recovery middleware so panics record a 500.
func HTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		protoMajor := r.ProtoMajor
		if protoMajor < 1 {
			protoMajor = 1
		}
		ww := chimw.NewWrapResponseWriter(w, protoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		// Status 0 means the handler wrote a body without WriteHeader: 200.
		if status == 0 {
			status = http.StatusOK
		}
		if status < 100 || status > 599 {
			status = http.StatusInternalServerError
		}

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}

		reqDuration.WithLabelValues(
			path,
			r.Method,
			strconv.Itoa(status),
		).Observe(time.Since(start).Seconds())
	})
}

// Handler returns the Prometheus metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
