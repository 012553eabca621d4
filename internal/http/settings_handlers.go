package http

import (
	nethttp "net/http"

	"go-incident-analysis-ui/internal/analysis"
)

func thresholdsHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"data": analysis.Thresholds(),
	})
}
