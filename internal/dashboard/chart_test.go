package dashboard

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBuildChart(t *testing.T) {
	c := buildChart(sampleRecords(), time.UTC)

	assert.Len(t, strings.Fields(c.Forecasted), 3)
	assert.Len(t, strings.Fields(c.Actual), 1)
	assert.Len(t, strings.Fields(c.Band), 6)
	assert.Greater(t, c.ThresholdY, c.PlotTop)
	assert.Less(t, c.ThresholdY, c.PlotBottom)
	// 610 + 100 margin rounds up to 800.
	assert.Equal(t, "800", c.YTicks[len(c.YTicks)-1].Label)
	assert.Equal(t, "Jun 1 06:00", c.XTicks[0].Label)
}

func TestBuildChart_Empty(t *testing.T) {
	c := buildChart(nil, time.UTC)

	assert.Empty(t, c.Forecasted)
	assert.Empty(t, c.Band)
	assert.Empty(t, c.XTicks)
	assert.Equal(t, "500", c.YTicks[len(c.YTicks)-1].Label)
}

func TestNiceCeil(t *testing.T) {
	assert.Equal(t, 100.0, niceCeil(0))
	assert.Equal(t, 500.0, niceCeil(500))
	assert.Equal(t, 600.0, niceCeil(501))
}
