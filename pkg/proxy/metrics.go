package proxy

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type serverMetrics struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	upstreamSeconds *prometheus.HistogramVec
}

func newServerMetrics() *serverMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &serverMetrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modelrelay_requests_total",
			Help: "Inbound HTTP requests by path and response code.",
		}, []string{"path", "code"}),
		upstreamSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modelrelay_upstream_request_seconds",
			Help:    "Latency of outbound upstream calls by response code.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"code"}),
	}
}

func (m *serverMetrics) observeUpstream(d time.Duration, status int) {
	if m == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	m.upstreamSeconds.WithLabelValues(code).Observe(d.Seconds())
}

func (m *serverMetrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m == nil {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		m.requestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(ww.Status())).Inc()
	})
}
