package http

import (
	"bufio"
	"errors"
	"net"
	nethttp "net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry        *prometheus.Registry
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	sourceLoads     *prometheus.CounterVec
	sourceDuration  *prometheus.HistogramVec
	selections      *prometheus.CounterVec
	liveClients     prometheus.Gauge
	liveBroadcasts  prometheus.Counter
	insightFactors  *prometheus.CounterVec
	appStartedAtSec prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	m := &metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incident_dashboard_http_requests_total",
			Help: "Total HTTP requests handled by this app.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "incident_dashboard_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "incident_dashboard_http_in_flight_requests",
			Help: "In-flight HTTP requests currently served by this app.",
		}),
		sourceLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incident_dashboard_snapshot_loads_total",
			Help: "Snapshot loads by source and result.",
		}, []string{"source", "result"}),
		sourceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "incident_dashboard_snapshot_load_duration_seconds",
			Help:    "Duration of snapshot loads.",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"source"}),
		selections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incident_dashboard_scenario_selections_total",
			Help: "Scenario switches by target scenario.",
		}, []string{"scenario"}),
		liveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "incident_dashboard_live_clients",
			Help: "Connected WebSocket clients.",
		}),
		liveBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "incident_dashboard_live_broadcasts_total",
			Help: "Events broadcast to WebSocket clients.",
		}),
		insightFactors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "incident_dashboard_insights_total",
			Help: "Correlation analyses by primary factor type.",
		}, []string{"factor_type", "overridden"}),
		appStartedAtSec: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "incident_dashboard_started_at_seconds",
			Help: "Unix time the process started.",
		}),
	}
	m.appStartedAtSec.Set(float64(time.Now().Unix()))

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.inFlight,
		m.sourceLoads, m.sourceDuration, m.selections,
		m.liveClients, m.liveBroadcasts, m.insightFactors, m.appStartedAtSec,
	)
	return m
}

func (m *metrics) handler() nethttp.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *metrics) recordSourceLoad(source string, durationSeconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sourceLoads.WithLabelValues(source, result).Inc()
	m.sourceDuration.WithLabelValues(source).Observe(durationSeconds)
}

type statusRecorder struct {
	nethttp.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (m *metrics) middleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r)

		route := normalizeMetricPath(r.URL.Path)
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func normalizeMetricPath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/dimensions/"):
		return "/api/v1/dimensions/{dim}"
	case strings.HasPrefix(path, "/api/"), path == "/", path == "/metrics", path == "/health", path == "/ready":
		return path
	default:
		return "other"
	}
}

// appMetricsSummaryHandler reports the busiest endpoints from the registry.
func (m *metrics) appMetricsSummaryHandler() nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		type endpointRow struct {
			Method string  `json:"method"`
			Path   string  `json:"path"`
			Status string  `json:"status"`
			Count  float64 `json:"count"`
		}

		families, err := m.registry.Gather()
		if err != nil {
			writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": "failed to gather metrics"})
			return
		}

		rows := make([]endpointRow, 0)
		for _, mf := range families {
			if mf.GetName() != "incident_dashboard_http_requests_total" {
				continue
			}
			for _, metric := range mf.GetMetric() {
				row := endpointRow{Count: metric.GetCounter().GetValue()}
				for _, lp := range metric.GetLabel() {
					switch lp.GetName() {
					case "method":
						row.Method = lp.GetValue()
					case "path":
						row.Path = lp.GetValue()
					case "status":
						row.Status = lp.GetValue()
					}
				}
				rows = append(rows, row)
			}
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
		if len(rows) > 5 {
			rows = rows[:5]
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"generated_at": time.Now().UTC(),
			},
			"data": map[string]any{
				"top_http_requests": rows,
			},
		})
	}
}

// Hijack lets WebSocket upgrades pass through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(nethttp.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = nethttp.StatusSwitchingProtocols
	return h.Hijack()
}
