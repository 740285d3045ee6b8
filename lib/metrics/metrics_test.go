package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Mutation("watch_add", "ok")
		r.CSRFRejected()
		r.PageView("browse", "ok")
		r.SeededMovies(3)
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	r.Middleware(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRecorder(t *testing.T) {
	r := New()

	r.Mutation("watch_add", "ok")
	r.Mutation("watch_add", "ok")
	r.CSRFRejected()
	r.SeededMovies(12)
	r.SeededMovies(0)

	assert.Equal(t, 2.0, counterValue(t, r.Mutations.WithLabelValues("watch_add", "ok")))
	assert.Equal(t, 1.0, counterValue(t, r.CSRFRejections))
	assert.Equal(t, 12.0, counterValue(t, r.Seeded))
}

func TestMiddlewareAndHandler(t *testing.T) {
	r := New()

	router := chi.NewRouter()
	router.Use(r.Middleware)
	router.Get("/movies/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	router.Handle("/metrics", r.Handler())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/movies/7", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mango_http_request_duration_seconds_count{method="GET",route="/movies/{id}",status="204"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
