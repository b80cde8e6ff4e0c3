package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_escrow_operations_total",
			Help: "Escrow operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commission_escrow_operation_duration_seconds",
			Help:    "Duration of escrow operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	PayoutUnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_escrow_payout_units_total",
			Help: "Settlement units paid out, by payout reason",
		},
		[]string{"reason"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_escrow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)

	WorkerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commission_escrow_worker_runs_total",
			Help: "Background worker passes by outcome",
		},
		[]string{"worker", "outcome"},
	)
)

// Recorder feeds use case observations into the package collectors.
type Recorder struct{}

func (Recorder) ObserveOperation(operation string, outcome string, elapsed time.Duration) {
	OperationsTotal.WithLabelValues(operation, outcome).Inc()
	OperationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (Recorder) ObservePayout(reason string, amount uint64) {
	PayoutUnitsTotal.WithLabelValues(reason).Add(float64(amount))
}

// RecordWorkerRun records one pass of a background worker.
func RecordWorkerRun(worker string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	WorkerRunsTotal.WithLabelValues(worker, outcome).Inc()
}

// Middleware records HTTP request counts keyed by the matched ServeMux pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(ww.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
