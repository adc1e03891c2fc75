package types

import "time"

// ForecastPoint is one sample of the precomputed irradiance forecast.
// IrrigationAlert is nil when the source did not carry an irrigation_alert
// column.
type ForecastPoint struct {
	Timestamp       time.Time `json:"timestamp"`
	ForecastedGHI   float64   `json:"forecasted_ghi"`
	ActualGHI       *float64  `json:"actual_ghi,omitempty"`
	IrrigationAlert *bool     `json:"irrigation_alert,omitempty"`
}

// AlertRecord is a ForecastPoint with its pump decision resolved.
type AlertRecord struct {
	Timestamp       time.Time `json:"timestamp"`
	ForecastedGHI   float64   `json:"forecasted_ghi"`
	ActualGHI       *float64  `json:"actual_ghi,omitempty"`
	IrrigationAlert bool      `json:"irrigation_alert"`
}

// AlertRule selects how the aggregate "alert now" signal is computed.
// A deployment runs exactly one rule.
type AlertRule string

const (
	// AlertRuleSustained requires two consecutive samples strictly above
	// the threshold.
	AlertRuleSustained AlertRule = "sustained"
	// AlertRulePointwise raises the alert when any sample's pump flag is set.
	AlertRulePointwise AlertRule = "pointwise"
)

// Valid reports whether r is a known rule.
func (r AlertRule) Valid() bool {
	return r == AlertRuleSustained || r == AlertRulePointwise
}

// ForecastSummary aggregates the derived alerts over the forecast horizon.
type ForecastSummary struct {
	AlertNow         bool      `json:"alert_now"`
	Rule             AlertRule `json:"rule"`
	Threshold        float64   `json:"threshold_w_m2"`
	MaxForecastedGHI float64   `json:"max_forecasted_ghi"`
	AlertsIssued     int       `json:"alerts_issued"`
	DaysForecasted   int       `json:"days_forecasted"`
	Points           int       `json:"points"`
	HorizonStart     time.Time `json:"horizon_start,omitzero"`
	HorizonEnd       time.Time `json:"horizon_end,omitzero"`
}

// AdvisoryLevel is the simulated voice advisory outcome.
type AdvisoryLevel string

const (
	AdvisoryIrrigate AdvisoryLevel = "irrigate"
	AdvisoryConserve AdvisoryLevel = "conserve"
)

// Advisory is the imminent-action message derived from the first record.
type Advisory struct {
	Level   AdvisoryLevel `json:"level"`
	Message string        `json:"message"`
	// BasedOn is the timestamp of the record the advisory was derived from.
	// Zero when the forecast is empty.
	BasedOn time.Time `json:"based_on,omitzero"`
}
