// Package alerts derives irrigation-pump recommendations from a forecasted
// global horizontal irradiance (GHI) series.
//
// Two rules exist. The per-sample flag (ExceedsThreshold) is inclusive at
// PumpThreshold and populates irrigation_alert when the source lacks it.
// The aggregate "alert now" signal is either SustainedExceedance (two
// consecutive samples strictly above the threshold) or pointwise (any
// flagged sample), selected once per deployment.
package alerts

// PumpThreshold is the GHI level in W/m² at which pumping is recommended.
const PumpThreshold = 500.0

// sustainedWindow is the number of consecutive samples that must exceed
// the threshold for the sustained rule to fire.
const sustainedWindow = 2

// ExceedsThreshold reports whether a single forecasted GHI value warrants
// pumping. The comparison is inclusive: exactly 500 W/m² is an alert.
func ExceedsThreshold(ghi float64) bool {
	return ghi >= PumpThreshold
}

// SustainedExceedance reports whether any two adjacent values both lie
// strictly above PumpThreshold. Sequences shorter than two never alert.
func SustainedExceedance(ghi []float64) bool {
	run := 0
	for _, v := range ghi {
		if v > PumpThreshold {
			run++
			if run >= sustainedWindow {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}

// Band returns the upper and lower bounds of a symmetric confidence band
// of width margin around ghi. Lower bounds are clamped at zero since
// irradiance cannot be negative.
func Band(ghi []float64, margin float64) (upper, lower []float64) {
	upper = make([]float64, len(ghi))
	lower = make([]float64, len(ghi))
	for i, v := range ghi {
		upper[i] = v + margin
		lower[i] = max(v-margin, 0)
	}
	return upper, lower
}
