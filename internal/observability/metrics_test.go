package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddleware_RecordsRoutePattern(t *testing.T) {
	c := NewCollector("test")

	r := chi.NewRouter()
	r.Use(c.Middleware)
	r.Get("/sprints/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/sprints/sprint-1", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/sprints/{id}", "404")))
}

func TestObserveHooks(t *testing.T) {
	c := NewCollector("test")

	c.ObserveSideEffect("email.code_delivered", nil)
	c.ObserveSideEffect("email.code_delivered", errors.New("ses down"))
	c.ObserveSideEffect("email.code_delivered", errors.New("ses down"))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SideEffects.WithLabelValues("email.code_delivered", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.SideEffects.WithLabelValues("email.code_delivered", "failure")))

	hook := c.ObserveRetry("sprint")
	hook("sprint-1", 1)
	hook("sprint-1", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(c.OptimisticRetries.WithLabelValues("sprint")))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("test")
	b := NewCollector("test")
	a.PointsRedeemed.Add(5)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.PointsRedeemed))
}
