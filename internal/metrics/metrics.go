package metrics

import (
	"net/http"
	"strconv"
	"time"

	"DanceSync/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 同步与 HTTP 指标；nil 接收者上的方法均为空操作
type Metrics struct {
	gatherer prometheus.Gatherer

	recordsFetched  *prometheus.CounterVec
	recordsRejected *prometheus.CounterVec
	merges          *prometheus.CounterVec
	finalized       prometheus.Counter
	adapterFailures *prometheus.CounterVec
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New 在 reg 上注册全部指标；reg 为 nil 时使用独立的 Registry
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		recordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dancesync_records_fetched_total",
			Help: "Raw records returned by source adapters.",
		}, []string{"source"}),
		recordsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dancesync_records_rejected_total",
			Help: "Records rejected by the pipeline, by reason code.",
		}, []string{"reason"}),
		merges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dancesync_merges_total",
			Help: "Deduplicator merges by kind (exact, fuzzy, cascade).",
		}, []string{"kind"}),
		finalized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dancesync_events_finalized_total",
			Help: "Canonical events handed to the sink.",
		}),
		adapterFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dancesync_adapter_failures_total",
			Help: "Source adapter fetches that failed.",
		}, []string{"source"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dancesync_runs_total",
			Help: "Pipeline runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dancesync_run_duration_seconds",
			Help:    "Wall time of a full query run (fetch, pipeline, sink).",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.recordsFetched,
		m.recordsRejected,
		m.merges,
		m.finalized,
		m.adapterFailures,
		m.runs,
		m.runDuration,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) RecordsFetched(source string, n int) {
	if m == nil {
		return
	}
	m.recordsFetched.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) AdapterFailed(source string) {
	if m == nil {
		return
	}
	m.adapterFailures.WithLabelValues(source).Inc()
}

func (m *Metrics) Rejected(byReason map[model.ReasonCode]int) {
	if m == nil {
		return
	}
	for reason, n := range byReason {
		m.recordsRejected.WithLabelValues(string(reason)).Add(float64(n))
	}
}

func (m *Metrics) Merged(exact, fuzzy, cascaded int) {
	if m == nil {
		return
	}
	m.merges.WithLabelValues("exact").Add(float64(exact))
	m.merges.WithLabelValues("fuzzy").Add(float64(fuzzy))
	m.merges.WithLabelValues("cascade").Add(float64(cascaded))
}

func (m *Metrics) Finalized(n int) {
	if m == nil {
		return
	}
	m.finalized.Add(float64(n))
}

func (m *Metrics) RunFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
}

// Middleware gin 中间件：按路由模板统计请求
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// Handler /metrics 端点
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
