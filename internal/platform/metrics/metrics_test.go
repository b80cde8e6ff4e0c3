package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderObservesOperationsAndPayouts(t *testing.T) {
	before := testutil.ToFloat64(OperationsTotal.WithLabelValues("claim_commission", "success"))
	payoutsBefore := testutil.ToFloat64(PayoutUnitsTotal.WithLabelValues("commission"))

	var recorder Recorder
	recorder.ObserveOperation("claim_commission", "success", 20*time.Millisecond)
	recorder.ObservePayout("commission", 50)

	assert.Equal(t, before+1, testutil.ToFloat64(OperationsTotal.WithLabelValues("claim_commission", "success")))
	assert.Equal(t, payoutsBefore+50, testutil.ToFloat64(PayoutUnitsTotal.WithLabelValues("commission")))
}

func TestRecordWorkerRun(t *testing.T) {
	before := testutil.ToFloat64(WorkerRunsTotal.WithLabelValues("slash_sweeper", "error"))
	RecordWorkerRun("slash_sweeper", errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(WorkerRunsTotal.WithLabelValues("slash_sweeper", "error")))
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/escrow/orders/{order_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	handler := Middleware(mux)

	counter := HTTPRequestsTotal.WithLabelValues("GET /v1/escrow/orders/{order_id}", "404")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/escrow/orders/order_9", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}
