package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics mengumpulkan metrik Prometheus untuk aplikasi.
type Metrics struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	salesCommitted   *prometheus.CounterVec
	salesRejected    *prometheus.CounterVec
	checkoutDuration *prometheus.HistogramVec
	jobsTotal        *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	salesCommitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_sales_committed_total",
		Help: "Jumlah penjualan yang berhasil di-commit per hasil pembayaran.",
	}, []string{"outcome"})
	salesRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_sales_rejected_total",
		Help: "Jumlah checkout yang ditolak per kode kegagalan.",
	}, []string{"code"})
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "meridian_checkout_duration_seconds",
		Help:    "Durasi checkout dari validasi sampai commit.",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"outcome"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meridian_jobs_total",
		Help: "Jumlah job background per nama dan status.",
	}, []string{"job", "status"})
	registry.MustRegister(requests, duration, salesCommitted, salesRejected, checkoutDuration, jobs)
	return &Metrics{
		registry:         registry,
		handler:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:    requests,
		requestDuration:  duration,
		salesCommitted:   salesCommitted,
		salesRejected:    salesRejected,
		checkoutDuration: checkoutDuration,
		jobsTotal:        jobs,
	}
}

// Handler mengembalikan http.Handler untuk endpoint /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware mencatat metrik untuk setiap permintaan HTTP.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// SaleCommitted mencatat penjualan yang berhasil beserta durasinya.
func (m *Metrics) SaleCommitted(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.salesCommitted.WithLabelValues(outcome).Inc()
	m.checkoutDuration.WithLabelValues(outcome).Observe(seconds)
}

// SaleRejected mencatat checkout yang ditolak per kode kegagalan.
func (m *Metrics) SaleRejected(code string) {
	if m == nil {
		return
	}
	m.salesRejected.WithLabelValues(code).Inc()
}

// JobProcessed mencatat hasil eksekusi job background.
func (m *Metrics) JobProcessed(job, status string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(job, status).Inc()
}

// Registerer mengekspos registry untuk pendaftaran metrik khusus.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
