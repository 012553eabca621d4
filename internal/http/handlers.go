package http

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	nethttp "net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"go-incident-analysis-ui/internal/analysis"
	"go-incident-analysis-ui/internal/incident"
	"go-incident-analysis-ui/internal/logger"
	"go-incident-analysis-ui/internal/scenario"
)

type selectScenarioRequest struct {
	Scenario string `json:"scenario"`
}

func scenariosHandler(svc *incident.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethods(w, r, nethttp.MethodGet) {
			return
		}

		catalog, err := svc.Scenarios(r.Context())
		if err != nil {
			writeServiceError(w, r, err, "failed to list scenarios")
			return
		}

		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"current": catalog.Current,
				"count":   len(catalog.Scenarios),
			},
			"data": catalog.Scenarios,
		})
	}
}

func scenarioHandler(svc *incident.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		switch r.Method {
		case nethttp.MethodGet:
			current, err := svc.Current(r.Context())
			if err != nil {
				writeServiceError(w, r, err, "failed to read scenario selection")
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"data": map[string]any{"scenario": current},
			})
		case nethttp.MethodPut, nethttp.MethodPost:
			var req selectScenarioRequest
			if err := json.NewDecoder(nethttp.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{
					"error": "invalid JSON body, expected {\"scenario\": \"<name>\"}",
				})
				return
			}
			if strings.TrimSpace(req.Scenario) == "" {
				writeJSON(w, nethttp.StatusBadRequest, map[string]any{
					"error": "scenario is required",
				})
				return
			}
			if err := svc.Select(r.Context(), req.Scenario); err != nil {
				writeServiceError(w, r, err, "failed to switch scenario")
				return
			}
			writeJSON(w, nethttp.StatusOK, map[string]any{
				"data": map[string]any{"scenario": strings.TrimSpace(req.Scenario)},
			})
		default:
			w.Header().Set("Allow", "GET, PUT, POST")
			writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{
				"error": "method not allowed",
			})
		}
	}
}

func alertHandler(svc *incident.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethods(w, r, nethttp.MethodGet) {
			return
		}

		view, err := svc.Alert(r.Context(), scenarioParam(r))
		if err != nil {
			writeServiceError(w, r, err, "failed to load alert")
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"scenario": view.Scenario},
			"data": view,
		})
	}
}

func timeseriesHandler(svc *incident.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethods(w, r, nethttp.MethodGet) {
			return
		}

		name, err := svc.Resolve(r.Context(), scenarioParam(r))
		if err != nil {
			writeServiceError(w, r, err, "failed to read scenario selection")
			return
		}
		points, err := svc.Series(r.Context(), name)
		if err != nil {
			writeServiceError(w, r, err, "failed to load time series")
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"scenario": name,
				"count":    len(points),
			},
			"data": points,
		})
	}
}

func dimensionHandler(svc *incident.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethods(w, r, nethttp.MethodGet) {
			return
		}

		dim := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/dimensions/"), "/")
		if dim == "" || strings.Contains(dim, "/") {
			nethttp.NotFound(w, r)
			return
		}

		name, err := svc.Resolve(r.Context(), scenarioParam(r))
		if err != nil {
			writeServiceError(w, r, err, "failed to read scenario selection")
			return
		}
		rows, err := svc.Dimension(r.Context(), name, dim)
		if err != nil {
			writeServiceError(w, r, err, "failed to load dimension")
			return
		}

		impacts := make([]float64, 0, len(rows))
		for _, row := range rows {
			impacts = append(impacts, row.Impact)
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{
				"scenario":     name,
				"dimension":    dim,
				"count":        len(rows),
				"distribution": analysis.ClassifyDistribution(impacts),
			},
			"data": rows,
		})
	}
}

func correlationHandler(svc *incident.Service, m *metrics) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethods(w, r, nethttp.MethodGet) {
			return
		}

		view, err := svc.Insight(r.Context(), scenarioParam(r))
		if err != nil {
			writeServiceError(w, r, err, "failed to analyse correlation")
			return
		}
		if m != nil {
			m.insightFactors.WithLabelValues(view.PrimaryFactor.Type, strconv.FormatBool(view.Overridden)).Inc()
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"meta": map[string]any{"scenario": view.Scenario},
			"data": view,
		})
	}
}

func formatHandler(w nethttp.ResponseWriter, r *nethttp.Request) {
	if !allowMethods(w, r, nethttp.MethodGet) {
		return
	}

	raw := strings.TrimSpace(r.URL.Query().Get("value"))
	if raw == "" {
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{
			"error": "value is required",
		})
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{
			"error": "value must be a number",
		})
		return
	}

	data := map[string]any{
		"formatted": analysis.FormatNumber(v),
	}
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		data["value"] = v
	}
	writeJSON(w, nethttp.StatusOK, map[string]any{"data": data})
}

func scenarioParam(r *nethttp.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("scenario"))
}

func allowMethods(w nethttp.ResponseWriter, r *nethttp.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m || (m == nethttp.MethodGet && r.Method == nethttp.MethodHead) {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeJSON(w, nethttp.StatusMethodNotAllowed, map[string]any{
		"error": "method not allowed",
	})
	return false
}

// writeServiceError maps service errors onto status codes. Unexpected
// errors are logged and hidden behind msg.
func writeServiceError(w nethttp.ResponseWriter, r *nethttp.Request, err error, msg string) {
	switch {
	case errors.Is(err, scenario.ErrUnknownScenario), errors.Is(err, incident.ErrUnknownDimension):
		writeJSON(w, nethttp.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nethttp.ErrHandlerTimeout):
		writeJSON(w, nethttp.StatusGatewayTimeout, map[string]any{"error": msg})
		return
	}

	logger.FromContext(r.Context(), nil).Error(msg, zap.Error(err))
	writeJSON(w, nethttp.StatusInternalServerError, map[string]any{"error": msg})
}
