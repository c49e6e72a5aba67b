package turnover

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/buzzindex/buzzboard/internal/models"
)

// RenderChart renders the monthly turnover series as a PNG line chart with
// a dashed average line. Returns raw PNG bytes.
func RenderChart(series []models.TurnoverPoint, stats models.TurnoverStats) ([]byte, error) {
	if len(series) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(series))
	}

	xValues := make([]time.Time, len(series))
	yValues := make([]float64, len(series))
	avgY := make([]float64, len(series))

	for i, p := range series {
		xValues[i] = p.RebalanceDate
		yValues[i] = p.TurnoverPct
		avgY[i] = stats.Avg
	}

	turnoverSeries := chart.TimeSeries{
		Name: "Monthly Turnover",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	avgSeries := chart.TimeSeries{
		Name: fmt.Sprintf("Average (%.2f%%)", stats.Avg),
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: avgY,
	}

	graph := chart.Chart{
		Title:  "Index Turnover",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f%%", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			turnoverSeries,
			avgSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
