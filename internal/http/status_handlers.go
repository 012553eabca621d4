package http

import (
	"context"
	"errors"
	nethttp "net/http"
	"time"

	"go-incident-analysis-ui/internal/config"
	"go-incident-analysis-ui/internal/connectors/sqlstore"
	"go-incident-analysis-ui/internal/selection"
)

func servicesStatusHandler(cfg config.Config, sel selection.Store, store *sqlstore.Store) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
		defer cancel()

		payload := map[string]any{
			"generated_at": time.Now().UTC(),
			"services":     map[string]any{},
		}
		services := payload["services"].(map[string]any)

		services["selection"] = selectionStatus(ctx, cfg.SelectionBackend, sel)
		services["snapshot_source"] = snapshotSourceStatus(ctx, cfg.SnapshotSource, store)

		writeJSON(w, nethttp.StatusOK, payload)
	}
}

func selectionStatus(ctx context.Context, backend string, sel selection.Store) map[string]any {
	if sel == nil {
		return map[string]any{"backend": backend, "ok": false, "error": "selection store not configured"}
	}

	start := time.Now()
	current, err := sel.Get(ctx)
	latency := time.Since(start).Milliseconds()
	_, watches := sel.(selection.Watcher)
	status := map[string]any{
		"backend":    backend,
		"ok":         true,
		"latency_ms": latency,
		"shared":     watches,
		"current":    current,
	}
	switch {
	case err == nil:
	case errors.Is(err, selection.ErrNotSet):
		status["current"] = nil
	default:
		status["ok"] = false
		status["error"] = err.Error()
	}
	return status
}

func snapshotSourceStatus(ctx context.Context, source string, store *sqlstore.Store) map[string]any {
	if store == nil {
		return map[string]any{"source": source, "enabled": true, "ok": true, "embedded": true}
	}

	latency, err := store.Ping(ctx)
	if err != nil {
		return map[string]any{"source": source, "driver": store.Driver(), "enabled": true, "ok": false, "error": err.Error()}
	}
	return map[string]any{"source": source, "driver": store.Driver(), "enabled": true, "ok": true, "latency_ms": latency}
}
