package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/simaogato/folio-backend/internal/domain"
)

// ErrNotEnoughHistory is returned when fewer than two snapshots exist to draw
var ErrNotEnoughHistory = errors.New("not enough history to chart")

// HistoryChart renders the portfolio history as a PNG line chart
func (s *Service) HistoryChart(ctx context.Context, from *time.Time) ([]byte, error) {
	snapshots, err := s.History(ctx, from)
	if err != nil {
		return nil, err
	}
	return RenderHistoryChart(snapshots)
}

// RenderHistoryChart renders a PNG line chart from portfolio snapshots.
// Two series: Portfolio Value (blue solid) and Total Cost (gray dashed).
// Days whose cost was unknown are left out of the cost series.
func RenderHistoryChart(snapshots []*domain.PortfolioSnapshot) ([]byte, error) {
	if len(snapshots) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 snapshots, got %d", ErrNotEnoughHistory, len(snapshots))
	}

	xValues := make([]time.Time, len(snapshots))
	valueY := make([]float64, len(snapshots))
	var costX []time.Time
	var costY []float64

	for i, snap := range snapshots {
		xValues[i] = snap.Date
		valueY[i] = snap.Value.InexactFloat64()
		if snap.Cost != nil {
			costX = append(costX, snap.Date)
			costY = append(costY, snap.Cost.InexactFloat64())
		}
	}

	valueSeries := chart.TimeSeries{
		Name: "Portfolio Value",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"),
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: valueY,
	}

	costSeries := chart.TimeSeries{
		Name: "Total Cost",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"),
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: costX,
		YValues: costY,
	}

	graph := chart.Chart{
		Title:  "Portfolio History",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("02 Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{valueSeries},
	}
	// a series needs two points to draw a line
	if len(costX) > 1 {
		graph.Series = append(graph.Series, costSeries)
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
