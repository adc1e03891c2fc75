package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExceedsThreshold(t *testing.T) {
	tests := []struct {
		name string
		ghi  float64
		want bool
	}{
		{"exactly at threshold is inclusive", 500.0, true},
		{"above threshold", 812.4, true},
		{"just below threshold", 499.999, false},
		{"zero at night", 0, false},
		{"negative sensor noise", -3.5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExceedsThreshold(tt.ghi))
		})
	}
}

func TestSustainedExceedance(t *testing.T) {
	tests := []struct {
		name string
		ghi  []float64
		want bool
	}{
		{"two leading exceedances", []float64{600, 600, 400}, true},
		{"separated exceedances", []float64{600, 400, 600}, false},
		{"single sample", []float64{600}, false},
		{"empty", nil, false},
		{"all below", []float64{100, 200, 499}, false},
		{"trailing pair", []float64{0, 100, 501, 502}, true},
		{"threshold is exclusive for the window", []float64{500, 500, 500}, false},
		{"one at threshold one above", []float64{500, 700}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SustainedExceedance(tt.ghi))
		})
	}
}

func TestBand(t *testing.T) {
	upper, lower := Band([]float64{50, 600}, DefaultBandMargin)

	assert.Equal(t, []float64{150, 700}, upper)
	assert.Equal(t, []float64{0, 500}, lower)
}
