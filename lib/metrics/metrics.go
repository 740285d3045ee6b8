// Package metrics exposes Prometheus instrumentation for mango.
//
// All Recorder methods are safe on a nil *Recorder, so packages that take
// one as a dependency work without metrics in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the application collectors.
type Recorder struct {
	// Mutations counts watchlist form posts by action and outcome.
	Mutations *prometheus.CounterVec
	// CSRFRejections counts posts refused for a missing or wrong token.
	CSRFRejections prometheus.Counter
	// PageViews counts index renders by view and page state.
	PageViews *prometheus.CounterVec
	// Seeded counts movies inserted by the seeder.
	Seeded prometheus.Counter
	// RequestDuration tracks handler latency by route and status.
	RequestDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers the collectors on a fresh registry along with the Go and
// process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(reg, reg)
}

// NewWith registers the collectors on reg and serves them from g.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mango_watchlist_mutations_total",
			Help: "Watchlist form posts by action and outcome",
		}, []string{"action", "outcome"}),
		CSRFRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "mango_csrf_rejections_total",
			Help: "Form posts rejected for a missing or mismatched CSRF token",
		}),
		PageViews: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mango_page_views_total",
			Help: "Index page renders by view and state",
		}, []string{"view", "state"}),
		Seeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "mango_seeded_movies_total",
			Help: "Sample movies inserted by the seeder",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mango_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		gatherer: g,
	}
}

// Mutation records the outcome of a watchlist post.
func (r *Recorder) Mutation(action, outcome string) {
	if r == nil {
		return
	}
	r.Mutations.WithLabelValues(action, outcome).Inc()
}

// CSRFRejected records a refused post.
func (r *Recorder) CSRFRejected() {
	if r == nil {
		return
	}
	r.CSRFRejections.Inc()
}

// PageView records an index render.
func (r *Recorder) PageView(view, state string) {
	if r == nil {
		return
	}
	r.PageViews.WithLabelValues(view, state).Inc()
}

// SeededMovies records rows inserted by the seeder.
func (r *Recorder) SeededMovies(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.Seeded.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}

// Middleware times each request and labels it with the matched chi route.
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	if r == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
		next.ServeHTTP(ww, req)

		route := "unmatched"
		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		r.RequestDuration.
			WithLabelValues(route, req.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
