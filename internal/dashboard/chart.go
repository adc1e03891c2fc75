package dashboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"sunpump/internal/alerts"
	"sunpump/internal/types"
)

// Chart canvas dimensions in SVG user units.
const (
	chartWidth    = 960.0
	chartHeight   = 360.0
	chartPadLeft  = 56.0
	chartPadRight = 16.0
	chartPadTop   = 16.0
	chartPadBot   = 40.0

	yTicks = 5
	xTicks = 6
)

// Chart is the precomputed geometry of the GHI line chart.
type Chart struct {
	Width, Height float64

	Forecasted string // polyline points
	Actual     string // polyline points, empty when no actual values
	Band       string // polygon points of the confidence band

	ThresholdY float64
	PlotLeft   float64
	PlotRight  float64
	PlotTop    float64
	PlotBottom float64

	YTicks []Tick
	XTicks []Tick
}

// Tick is an axis label at a position along its axis.
type Tick struct {
	Pos   float64
	Label string
}

// buildChart lays out records onto the canvas. The y axis always includes
// the pump threshold so the marker is visible on dark days.
func buildChart(records []types.AlertRecord, loc *time.Location) Chart {
	c := Chart{
		Width:      chartWidth,
		Height:     chartHeight,
		PlotLeft:   chartPadLeft,
		PlotRight:  chartWidth - chartPadRight,
		PlotTop:    chartPadTop,
		PlotBottom: chartHeight - chartPadBot,
	}

	ghi := make([]float64, len(records))
	for i, r := range records {
		ghi[i] = r.ForecastedGHI
	}
	upper, lower := alerts.Band(ghi, alerts.DefaultBandMargin)

	yMax := alerts.PumpThreshold
	for i, r := range records {
		yMax = math.Max(yMax, upper[i])
		if r.ActualGHI != nil {
			yMax = math.Max(yMax, *r.ActualGHI)
		}
	}
	yMax = niceCeil(yMax)

	x := func(i int) float64 {
		if len(records) < 2 {
			return (c.PlotLeft + c.PlotRight) / 2
		}
		return c.PlotLeft + float64(i)/float64(len(records)-1)*(c.PlotRight-c.PlotLeft)
	}
	y := func(v float64) float64 {
		return c.PlotBottom - v/yMax*(c.PlotBottom-c.PlotTop)
	}

	var fc, ac, up, lo strings.Builder
	for i, r := range records {
		fmt.Fprintf(&fc, "%.1f,%.1f ", x(i), y(r.ForecastedGHI))
		fmt.Fprintf(&up, "%.1f,%.1f ", x(i), y(upper[i]))
		if r.ActualGHI != nil {
			fmt.Fprintf(&ac, "%.1f,%.1f ", x(i), y(*r.ActualGHI))
		}
	}
	for i := len(records) - 1; i >= 0; i-- {
		fmt.Fprintf(&lo, "%.1f,%.1f ", x(i), y(lower[i]))
	}
	c.Forecasted = strings.TrimSpace(fc.String())
	c.Actual = strings.TrimSpace(ac.String())
	if len(records) > 0 {
		c.Band = strings.TrimSpace(up.String() + lo.String())
	}
	c.ThresholdY = y(alerts.PumpThreshold)

	for i := 0; i <= yTicks; i++ {
		v := yMax * float64(i) / yTicks
		c.YTicks = append(c.YTicks, Tick{Pos: y(v), Label: fmt.Sprintf("%.0f", v)})
	}

	if n := len(records); n > 0 {
		step := max(1, (n-1)/xTicks)
		for i := 0; i < n; i += step {
			c.XTicks = append(c.XTicks, Tick{Pos: x(i), Label: records[i].Timestamp.In(loc).Format("Jan 2 15:04")})
		}
	}

	return c
}

// niceCeil rounds v up to the next multiple of 100.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 100
	}
	return math.Ceil(v/100) * 100
}
