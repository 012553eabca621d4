package http

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-incident-analysis-ui/internal/config"
	"go-incident-analysis-ui/internal/connectors/sqlstore"
	"go-incident-analysis-ui/internal/incident"
	"go-incident-analysis-ui/internal/logger"
	"go-incident-analysis-ui/internal/scenario"
	"go-incident-analysis-ui/internal/selection"
)

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer *nethttp.Server
	handler    nethttp.Handler
	log        *zap.Logger
	metrics    *metrics
	hub        *liveHub
	svc        *incident.Service
	selection  selection.Store
	sqlStore   *sqlstore.Store
	cancel     context.CancelFunc
}

// NewServer creates a configured HTTP server with v1 endpoints.
func NewServer(cfg config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := newMetrics()

	source, sqlStore, err := newSource(cfg, m)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnTimeout+time.Second)
	defer cancel()
	sel, err := newSelectionStore(ctx, cfg)
	if err != nil {
		if sqlStore != nil {
			_ = sqlStore.Close()
		}
		return nil, err
	}

	svc := incident.NewService(source, sel, cfg.DefaultScenario, log)
	if _, err := source.Load(ctx, cfg.DefaultScenario); err != nil {
		log.Warn("default scenario is not available", zap.String("scenario", cfg.DefaultScenario), zap.Error(err))
	}

	hub := newLiveHub(cfg.WSMaxClients, log, m)
	svc.OnSelect(func(name string) { m.selections.WithLabelValues(name).Inc() })
	if _, ok := sel.(selection.Watcher); !ok {
		svc.OnSelect(hub.scenarioChanged)
	}

	s := &Server{
		log:       log,
		metrics:   m,
		hub:       hub,
		svc:       svc,
		selection: sel,
		sqlStore:  sqlStore,
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/", dashboardHandler)
	mux.HandleFunc("/favicon.ico", faviconHandler)
	mux.Handle("/metrics", m.handler())
	mux.HandleFunc("/api/v1/metrics/app", m.appMetricsSummaryHandler())
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(svc))
	mux.HandleFunc("/api/v1/scenarios", scenariosHandler(svc))
	mux.HandleFunc("/api/v1/scenario", scenarioHandler(svc))
	mux.HandleFunc("/api/v1/alert", alertHandler(svc))
	mux.HandleFunc("/api/v1/timeseries", timeseriesHandler(svc))
	mux.HandleFunc("/api/v1/dimensions/", dimensionHandler(svc))
	mux.HandleFunc("/api/v1/correlation", correlationHandler(svc, m))
	mux.HandleFunc("/api/v1/format", formatHandler)
	mux.HandleFunc("/api/v1/charts/timeseries.png", timeseriesChartHandler(svc, cfg.ChartWidth, cfg.ChartHeight))
	mux.HandleFunc("/api/v1/status/services", servicesStatusHandler(cfg, sel, sqlStore))
	mux.HandleFunc("/api/v1/settings/thresholds", thresholdsHandler)
	mux.HandleFunc("/ws", hub.handleWebSocket)

	s.handler = loggingMiddleware(log, m.middleware(mux))
	s.httpServer = &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler returns the fully wrapped route handler.
func (s *Server) Handler() nethttp.Handler {
	return s.handler
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if w, ok := s.selection.(selection.Watcher); ok {
		go s.relaySelections(ctx, w)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.hub.close()
	err := s.httpServer.Shutdown(ctx)
	if s.selection != nil {
		_ = s.selection.Close()
	}
	if s.sqlStore != nil {
		_ = s.sqlStore.Close()
	}
	return err
}

// relaySelections forwards selections made by any replica to this
// replica's WebSocket clients.
func (s *Server) relaySelections(ctx context.Context, w selection.Watcher) {
	for {
		events, err := w.Watch(ctx)
		if err != nil {
			s.log.Warn("selection watch failed", zap.Error(err))
		} else {
			for name := range events {
				s.hub.scenarioChanged(name)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func newSource(cfg config.Config, m *metrics) (incident.Source, *sqlstore.Store, error) {
	switch cfg.SnapshotSource {
	case "sql":
		store, err := sqlstore.NewStore(cfg)
		if err != nil {
			return nil, nil, err
		}
		return &timedSource{name: "sql_" + store.Driver(), next: store, metrics: m}, store, nil
	default:
		catalog, err := scenario.LoadCatalog()
		if err != nil {
			return nil, nil, err
		}
		return &timedSource{name: "catalog", next: catalog, metrics: m}, nil, nil
	}
}

func newSelectionStore(ctx context.Context, cfg config.Config) (selection.Store, error) {
	switch cfg.SelectionBackend {
	case "sqlite":
		return selection.NewSQLiteStore(cfg.SelectionSQLitePath)
	case "redis":
		return selection.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey)
	case "memory":
		return selection.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported selection backend %q", cfg.SelectionBackend)
	}
}

// timedSource records load counts and latency for a snapshot source.
type timedSource struct {
	name    string
	next    incident.Source
	metrics *metrics
}

func (t *timedSource) Load(ctx context.Context, name string) (*scenario.Snapshot, error) {
	start := time.Now()
	snap, err := t.next.Load(ctx, name)
	t.metrics.recordSourceLoad(t.name, time.Since(start).Seconds(), err)
	return snap, err
}

func (t *timedSource) List(ctx context.Context) ([]scenario.Summary, error) {
	return t.next.List(ctx)
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func readyHandler(svc *incident.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if _, err := svc.Snapshot(r.Context(), ""); err != nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"status": "ready",
		})
	}
}

func loggingMiddleware(log *zap.Logger, next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := logger.With(r.Context(), log, zap.String("request_id", requestID))
		rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger.FromContext(ctx, log).Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
