package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "endpoint", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint", "status"},
	)
	upstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sefaz_requests_total",
			Help: "Total number of SEFAZ upstream call attempts.",
		},
		[]string{"endpoint", "outcome"},
	)
	upstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sefaz_request_duration_seconds",
			Help:    "Histogram of SEFAZ upstream attempt durations.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 45, 60},
		},
		[]string{"endpoint", "outcome"},
	)
	syncRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_sync_runs_total",
			Help: "Total number of price synchronization runs.",
		},
		[]string{"scope", "status"},
	)
	syncItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "price_sync_items_total",
			Help: "Total number of tracked items visited by sync runs.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(upstreamRequestsTotal)
	prometheus.MustRegister(upstreamRequestDuration)
	prometheus.MustRegister(syncRunsTotal)
	prometheus.MustRegister(syncItemsTotal)
}

// RecordRequest записывает метрики для HTTP-запроса.
func RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := classifyStatus(statusCode)
	httpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
}

// RecordUpstreamAttempt записывает метрики одной попытки вызова SEFAZ.
func RecordUpstreamAttempt(endpoint string, success bool, duration time.Duration) {
	outcome := "error"
	if success {
		outcome = "success"
	}
	upstreamRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	upstreamRequestDuration.WithLabelValues(endpoint, outcome).Observe(duration.Seconds())
}

func RecordSyncRun(scope, status string) {
	syncRunsTotal.WithLabelValues(scope, status).Inc()
}

func RecordSyncItem(result string) {
	syncItemsTotal.WithLabelValues(result).Inc()
}

func classifyStatus(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "2xx"
	} else if statusCode >= 300 && statusCode < 400 {
		return "3xx"
	} else if statusCode >= 400 && statusCode < 500 {
		return "4xx"
	} else if statusCode >= 500 && statusCode < 600 {
		return "5xx"
	}
	return "unknown"
}

// MetricsHandler возвращает HTTP-обработчик для экспорта метрик Prometheus.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
