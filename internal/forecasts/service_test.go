package forecasts

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunpump/internal/alerts"
	"sunpump/internal/i18n"
	"sunpump/internal/types"
)

func newTestService(src Source, rule types.AlertRule) *Service {
	return NewService(NewStore(src, nil), alerts.NewDeriver(rule))
}

func TestService_Current(t *testing.T) {
	svc := newTestService(&countingSource{content: threeDayCSV}, types.AlertRuleSustained)

	v, err := svc.Current(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "test://forecast.csv", v.Source)
	require.Len(t, v.Records, 3)
	assert.True(t, v.Records[0].IrrigationAlert)
	assert.True(t, v.Records[1].IrrigationAlert)
	assert.False(t, v.Records[2].IrrigationAlert)

	// 612.5 and 701.25 are consecutive and both above 500.
	assert.True(t, v.Summary.AlertNow)
	assert.Equal(t, types.AlertRuleSustained, v.Summary.Rule)
	assert.Equal(t, 701.25, v.Summary.MaxForecastedGHI)
	assert.Equal(t, 2, v.Summary.AlertsIssued)
	assert.Equal(t, 1, v.Summary.DaysForecasted)
}

func TestService_Advisory(t *testing.T) {
	svc := newTestService(&countingSource{content: threeDayCSV}, types.AlertRulePointwise)
	v, err := svc.Current(context.Background())
	require.NoError(t, err)

	en := v.Advisory(i18n.English)
	assert.Equal(t, types.AdvisoryIrrigate, en.Level)
	assert.Equal(t, i18n.For(i18n.English).AdvisoryIrrigate, en.Message)
	assert.Equal(t, v.Records[0].Timestamp, en.BasedOn)

	mr := v.Advisory(i18n.Marathi)
	assert.Equal(t, i18n.For(i18n.Marathi).AdvisoryIrrigate, mr.Message)
}

func TestService_AdvisoryUsesFirstRecordOnly(t *testing.T) {
	csv := "timestamp,forecasted_ghi\n2025-04-01 06:00,120\n2025-04-01 12:00,820\n2025-04-01 13:00,810\n"
	svc := newTestService(&countingSource{content: csv}, types.AlertRuleSustained)
	v, err := svc.Current(context.Background())
	require.NoError(t, err)

	assert.True(t, v.Summary.AlertNow)
	assert.Equal(t, types.AdvisoryConserve, v.Advisory(i18n.English).Level)
}

func TestService_Export(t *testing.T) {
	svc := newTestService(&countingSource{content: threeDayCSV}, types.AlertRuleSustained)
	v, err := svc.Current(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, v.Export(&buf))
	assert.Equal(t, "timestamp,forecasted_ghi,actual_ghi,irrigation_alert\n"+
		"2025-04-01 10:00:00,612.5,598.1,1\n"+
		"2025-04-01 11:00:00,701.25,,1\n"+
		"2025-04-01 12:00:00,480,455.0,0\n", buf.String())
}

func TestService_ReloadSeesNewData(t *testing.T) {
	src := &countingSource{content: threeDayCSV}
	svc := newTestService(src, types.AlertRuleSustained)

	_, err := svc.Current(context.Background())
	require.NoError(t, err)

	src.set("timestamp,forecasted_ghi\n2025-04-02 10:00,100\n", nil)
	v, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Len(t, v.Records, 3, "cached until reload")

	v, err = svc.Reload(context.Background())
	require.NoError(t, err)
	require.Len(t, v.Records, 1)
	assert.False(t, v.Summary.AlertNow)
}

func TestService_HealthProbe(t *testing.T) {
	src := &countingSource{err: errors.New("bucket missing")}
	svc := newTestService(src, types.AlertRuleSustained)

	assert.Equal(t, "forecast", svc.Name())
	assert.Error(t, svc.Check(context.Background()))

	src.set(threeDayCSV, nil)
	assert.NoError(t, svc.Check(context.Background()))
}
