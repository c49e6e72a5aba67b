package conviction

import (
	"bytes"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RenderSparkline renders a ticker's score tail as a small bare PNG line,
// green when the trend is up and red when it is down.
func RenderSparkline(ticker string, scores []float64) ([]byte, error) {
	if len(scores) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(scores))
	}

	xValues := make([]float64, len(scores))
	for i := range scores {
		xValues[i] = float64(i)
	}

	color := drawing.ColorFromHex("16a34a") // green-600
	if scores[len(scores)-1] < scores[0] {
		color = drawing.ColorFromHex("dc2626") // red-600
	}

	graph := chart.Chart{
		Width:  240,
		Height: 60,
		Background: chart.Style{
			Padding: chart.Box{Top: 4, Left: 4, Right: 4, Bottom: 4},
		},
		XAxis: chart.XAxis{Style: chart.Hidden()},
		YAxis: chart.YAxis{Style: chart.Hidden()},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name: ticker,
				Style: chart.Style{
					StrokeColor: color,
					StrokeWidth: 2.0,
				},
				XValues: xValues,
				YValues: scores,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}
