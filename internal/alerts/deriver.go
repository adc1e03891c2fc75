package alerts

import (
	"time"

	"sunpump/internal/types"
)

// DefaultBandMargin is the half-width in W/m² of the chart confidence band.
const DefaultBandMargin = 100.0

// Deriver applies the configured alert-now rule to a forecast. It holds no
// mutable state and is safe for concurrent use.
type Deriver struct {
	rule types.AlertRule
	loc  *time.Location
}

// DeriverOption configures a Deriver.
type DeriverOption func(*Deriver)

// WithDayLocation sets the zone whose calendar dates Summarize counts.
// Defaults to UTC.
func WithDayLocation(loc *time.Location) DeriverOption {
	return func(d *Deriver) {
		if loc != nil {
			d.loc = loc
		}
	}
}

// NewDeriver returns a Deriver for rule. An unknown or empty rule falls back
// to AlertRuleSustained.
func NewDeriver(rule types.AlertRule, opts ...DeriverOption) *Deriver {
	if !rule.Valid() {
		rule = types.AlertRuleSustained
	}
	d := &Deriver{rule: rule, loc: time.UTC}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Rule returns the alert-now rule in effect.
func (d *Deriver) Rule() types.AlertRule {
	return d.rule
}

// Records resolves the pump flag for every point. A flag supplied by the
// source is kept as is; a missing flag is computed with ExceedsThreshold.
// The result preserves input order and length.
func (d *Deriver) Records(points []types.ForecastPoint) []types.AlertRecord {
	records := make([]types.AlertRecord, len(points))
	for i, p := range points {
		flag := ExceedsThreshold(p.ForecastedGHI)
		if p.IrrigationAlert != nil {
			flag = *p.IrrigationAlert
		}
		records[i] = types.AlertRecord{
			Timestamp:       p.Timestamp,
			ForecastedGHI:   p.ForecastedGHI,
			ActualGHI:       p.ActualGHI,
			IrrigationAlert: flag,
		}
	}
	return records
}

// AlertNow computes the aggregate signal over records.
func (d *Deriver) AlertNow(records []types.AlertRecord) bool {
	if d.rule == types.AlertRulePointwise {
		for _, r := range records {
			if r.IrrigationAlert {
				return true
			}
		}
		return false
	}
	return SustainedExceedance(forecastedSeries(records))
}

// Summarize aggregates records into the dashboard metrics.
func (d *Deriver) Summarize(records []types.AlertRecord) types.ForecastSummary {
	s := types.ForecastSummary{
		AlertNow:  d.AlertNow(records),
		Rule:      d.rule,
		Threshold: PumpThreshold,
		Points:    len(records),
	}
	if len(records) == 0 {
		return s
	}

	s.MaxForecastedGHI = records[0].ForecastedGHI
	s.HorizonStart = records[0].Timestamp
	s.HorizonEnd = records[0].Timestamp
	days := make(map[string]struct{})
	for _, r := range records {
		s.MaxForecastedGHI = max(s.MaxForecastedGHI, r.ForecastedGHI)
		if r.IrrigationAlert {
			s.AlertsIssued++
		}
		if r.Timestamp.Before(s.HorizonStart) {
			s.HorizonStart = r.Timestamp
		}
		if r.Timestamp.After(s.HorizonEnd) {
			s.HorizonEnd = r.Timestamp
		}
		days[r.Timestamp.In(d.loc).Format(time.DateOnly)] = struct{}{}
	}
	s.DaysForecasted = len(days)
	return s
}

// AdvisoryLevel returns the imminent-action level, driven only by the first
// record's flag. An empty forecast advises conserving.
func (d *Deriver) AdvisoryLevel(records []types.AlertRecord) (types.AdvisoryLevel, time.Time) {
	if len(records) == 0 {
		return types.AdvisoryConserve, time.Time{}
	}
	if records[0].IrrigationAlert {
		return types.AdvisoryIrrigate, records[0].Timestamp
	}
	return types.AdvisoryConserve, records[0].Timestamp
}

func forecastedSeries(records []types.AlertRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.ForecastedGHI
	}
	return out
}
