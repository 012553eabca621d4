package http

import (
	"bytes"
	"fmt"
	nethttp "net/http"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"go-incident-analysis-ui/internal/incident"
	"go-incident-analysis-ui/internal/scenario"
)

type chartMetric struct {
	label string
	color drawing.Color
	value func(scenario.Point) float64
}

var chartMetrics = map[string]chartMetric{
	"cnt": {
		label: "Transactions",
		color: drawing.ColorFromHex("1f77b4"),
		value: func(p scenario.Point) float64 { return float64(p.Cnt) },
	},
	"succ": {
		label: "Success rate (%)",
		color: drawing.ColorFromHex("2ca02c"),
		value: func(p scenario.Point) float64 { return p.Succ },
	},
	"respTime": {
		label: "Response time (ms)",
		color: drawing.ColorFromHex("ff7f0e"),
		value: func(p scenario.Point) float64 { return p.RespTime },
	},
	"fail": {
		label: "Failures",
		color: drawing.ColorFromHex("d62728"),
		value: func(p scenario.Point) float64 { return float64(p.Fail) },
	},
}

func timeseriesChartHandler(svc *incident.Service, width, height int) nethttp.HandlerFunc {
	if width <= 0 {
		width = 960
	}
	if height <= 0 {
		height = 320
	}
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if !allowMethods(w, r, nethttp.MethodGet) {
			return
		}

		metricName := strings.TrimSpace(r.URL.Query().Get("metric"))
		if metricName == "" {
			metricName = "cnt"
		}
		metric, ok := chartMetrics[metricName]
		if !ok {
			writeJSON(w, nethttp.StatusBadRequest, map[string]any{
				"error": "metric must be one of cnt, succ, respTime, fail",
			})
			return
		}

		snap, err := svc.Snapshot(r.Context(), scenarioParam(r))
		if err != nil {
			writeServiceError(w, r, err, "failed to load time series")
			return
		}
		if len(snap.Series) == 0 {
			writeJSON(w, nethttp.StatusNotFound, map[string]any{
				"error": "scenario has no time series",
			})
			return
		}

		png, err := renderSeriesChart(snap, metric, width, height)
		if err != nil {
			writeServiceError(w, r, err, "failed to render chart")
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(nethttp.StatusOK)
		_, _ = w.Write(png)
	}
}

func renderSeriesChart(snap *scenario.Snapshot, metric chartMetric, width, height int) ([]byte, error) {
	times := make([]time.Time, 0, len(snap.Series)+1)
	ys := make([]float64, 0, len(snap.Series)+1)
	for _, p := range snap.Series {
		times = append(times, p.Time)
		ys = append(ys, metric.value(p))
	}
	// go-chart needs two distinct X values.
	if len(times) == 1 {
		times = append(times, times[0].Add(time.Minute))
		ys = append(ys, ys[0])
	}

	yAxis := chart.YAxis{Name: metric.label}
	if lo, hi := minMax(ys); lo == hi {
		yAxis.Range = &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	ch := chart.Chart{
		Title:      fmt.Sprintf("%s: %s", snap.Title, metric.label),
		Width:      width,
		Height:     height,
		Background: chart.Style{Padding: chart.Box{Top: 28, Left: 16, Right: 12, Bottom: 12}},
		XAxis:      chart.XAxis{ValueFormatter: chart.TimeMinuteValueFormatter},
		YAxis:      yAxis,
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    metric.label,
				XValues: times,
				YValues: ys,
				Style:   chart.Style{StrokeColor: metric.color, StrokeWidth: 2},
			},
		},
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

func minMax(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}
