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
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	exportsTotal    *prometheus.CounterVec
	exportDuration  *prometheus.HistogramVec
	treeBuild       prometheus.Histogram
	treeNodes       prometheus.Gauge
	treeOrphans     prometheus.Gauge
	cacheResults    *prometheus.CounterVec
	jobsTotal       *prometheus.CounterVec
}

// NewMetrics menginisialisasi registry dan metrik dasar.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_http_requests_total",
		Help: "Jumlah permintaan HTTP berdasarkan route dan status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_http_request_duration_seconds",
		Help:    "Durasi permintaan HTTP per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	exports := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_exports_total",
		Help: "Jumlah ekspor laporan berdasarkan format dan hasil.",
	}, []string{"format", "outcome"})
	exportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "odyssey_export_duration_seconds",
		Help:    "Durasi pembuatan artefak ekspor per format.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"format"})
	treeBuild := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "odyssey_account_tree_build_seconds",
		Help:    "Durasi membangun dan menjumlahkan pohon akun.",
		Buckets: prometheus.DefBuckets,
	})
	treeNodes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "odyssey_account_tree_nodes",
		Help: "Jumlah node pada pohon akun terakhir.",
	})
	treeOrphans := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "odyssey_account_tree_orphans",
		Help: "Jumlah akun yatim yang dipromosikan menjadi root pada pohon terakhir.",
	})
	cacheResults := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_report_cache_total",
		Help: "Hasil pencarian cache snapshot laporan.",
	}, []string{"result"})
	jobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_jobs_total",
		Help: "Jumlah job latar belakang berdasarkan tipe dan status.",
	}, []string{"type", "status"})
	registry.MustRegister(requests, duration, exports, exportDuration, treeBuild, treeNodes, treeOrphans, cacheResults, jobs)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		exportsTotal:    exports,
		exportDuration:  exportDuration,
		treeBuild:       treeBuild,
		treeNodes:       treeNodes,
		treeOrphans:     treeOrphans,
		cacheResults:    cacheResults,
		jobsTotal:       jobs,
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

// ObserveExport mencatat satu ekspor. outcome bernilai ok, fallback atau error.
func (m *Metrics) ObserveExport(format, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(format, outcome).Inc()
	m.exportDuration.WithLabelValues(format).Observe(elapsed.Seconds())
}

// ObserveTreeBuild mencatat ukuran dan durasi pembangunan pohon akun.
func (m *Metrics) ObserveTreeBuild(nodes, orphans int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.treeBuild.Observe(elapsed.Seconds())
	m.treeNodes.Set(float64(nodes))
	m.treeOrphans.Set(float64(orphans))
}

// ObserveCache mencatat hit atau miss cache snapshot.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheResults.WithLabelValues(result).Inc()
}

// ObserveJob mencatat hasil job latar belakang.
func (m *Metrics) ObserveJob(taskType string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	m.jobsTotal.WithLabelValues(taskType, status).Inc()
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
