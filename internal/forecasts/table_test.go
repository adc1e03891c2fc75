package forecasts

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunpump/internal/types"
)

const threeDayCSV = `timestamp,forecasted_ghi,actual_ghi
2025-04-01 10:00:00,612.5,598.1
2025-04-01 11:00:00,701.25,
2025-04-01 12:00:00,480,455.0
`

func derive(points []types.ForecastPoint) []types.AlertRecord {
	records := make([]types.AlertRecord, len(points))
	for i, p := range points {
		flag := p.ForecastedGHI >= 500
		if p.IrrigationAlert != nil {
			flag = *p.IrrigationAlert
		}
		records[i] = types.AlertRecord{Timestamp: p.Timestamp, ForecastedGHI: p.ForecastedGHI, IrrigationAlert: flag}
	}
	return records
}

func TestParse_Success(t *testing.T) {
	table, err := Parse(strings.NewReader(threeDayCSV))
	require.NoError(t, err)

	assert.False(t, table.HasAlertColumn)
	require.Len(t, table.Points, 3)
	require.Len(t, table.Rows, 3)

	p := table.Points[0]
	assert.Equal(t, time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC), p.Timestamp)
	assert.Equal(t, 612.5, p.ForecastedGHI)
	require.NotNil(t, p.ActualGHI)
	assert.Equal(t, 598.1, *p.ActualGHI)
	assert.Nil(t, p.IrrigationAlert)

	assert.Nil(t, table.Points[1].ActualGHI, "empty actual_ghi must be nil")
}

func TestParse_AlertColumnAndHeaderVariants(t *testing.T) {
	input := "\ufeff Timestamp , FORECASTED_GHI ,irrigation_alert\n" +
		"2025-04-01T10:00:00Z,100,1\n" +
		"2025-04-01T11:00:00+05:30,900,false\n"

	table, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.True(t, table.HasAlertColumn)
	require.NotNil(t, table.Points[0].IrrigationAlert)
	assert.True(t, *table.Points[0].IrrigationAlert)
	require.NotNil(t, table.Points[1].IrrigationAlert)
	assert.False(t, *table.Points[1].IrrigationAlert)
	assert.Equal(t, time.Date(2025, 4, 1, 5, 30, 0, 0, time.UTC), table.Points[1].Timestamp.UTC())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  types.ErrorCode
	}{
		{"empty file", "", types.ErrCodeValidationEmptyForecast},
		{"missing forecasted_ghi", "timestamp,actual_ghi\n2025-04-01,1\n", types.ErrCodeValidationMissingColumn},
		{"missing timestamp", "forecasted_ghi\n1\n", types.ErrCodeValidationMissingColumn},
		{"bad timestamp", "timestamp,forecasted_ghi\nyesterday,1\n", types.ErrCodeValidationMalformed},
		{"bad ghi", "timestamp,forecasted_ghi\n2025-04-01,bright\n", types.ErrCodeValidationMalformed},
		{"bad flag", "timestamp,forecasted_ghi,irrigation_alert\n2025-04-01,1,maybe\n", types.ErrCodeValidationMalformed},
		{"ragged row", "timestamp,forecasted_ghi\n2025-04-01,1,extra\n", types.ErrCodeValidationMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.input))
			var appErr *types.AppError
			require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestParse_MalformedDetails(t *testing.T) {
	_, err := Parse(strings.NewReader("timestamp,forecasted_ghi\n2025-04-01,1\n2025-04-02,x\n"))

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, 3, appErr.Details["line"])
	assert.Equal(t, ColForecastedGHI, appErr.Details["column"])
}

func TestParse_HeaderOnly(t *testing.T) {
	table, err := Parse(strings.NewReader("timestamp,forecasted_ghi\n"))
	require.NoError(t, err)
	assert.Empty(t, table.Points)
}

func TestExport_AppendsDerivedColumn(t *testing.T) {
	table, err := Parse(strings.NewReader(threeDayCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, table, derive(table.Points)))

	want := `timestamp,forecasted_ghi,actual_ghi,irrigation_alert
2025-04-01 10:00:00,612.5,598.1,1
2025-04-01 11:00:00,701.25,,1
2025-04-01 12:00:00,480,455.0,0
`
	assert.Equal(t, want, buf.String())
}

func TestExport_RoundTripPreservesColumns(t *testing.T) {
	input := "timestamp,forecasted_ghi,irrigation_alert,station\n" +
		"2025-04-01 10:00:00,612.50,0,AUR-01\n" +
		"2025-04-01 11:00:00,1e2,1,AUR-01\n"

	table, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, table, derive(table.Points)))
	assert.Equal(t, input, buf.String(), "source flags and extra columns must survive unchanged")

	again, err := Parse(&buf)
	require.NoError(t, err)
	assert.Equal(t, table.Rows, again.Rows)
}

func TestExport_KeepsLeadingSpaces(t *testing.T) {
	input := "timestamp,forecasted_ghi,note\n2024-06-01 12:00:00, 600, keep me\n"

	table, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 600.0, table.Points[0].ForecastedGHI)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, table, derive(table.Points)))
	assert.Equal(t, "timestamp,forecasted_ghi,note,irrigation_alert\n2024-06-01 12:00:00, 600, keep me,1\n", buf.String())
}

func TestExport_QuotesOnlyWhenNeeded(t *testing.T) {
	input := "timestamp,forecasted_ghi,note,irrigation_alert\n" +
		"2024-06-01 12:00:00,600, keep me,1\n" +
		"2024-06-01 13:00:00,420,\"north, \"\"A\"\"\",0\n"

	table, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, `north, "A"`, table.Rows[1][2])

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, table, derive(table.Points)))
	assert.Equal(t, input, buf.String())
}

func TestExport_FillsEmptyAlertCells(t *testing.T) {
	input := "timestamp,forecasted_ghi,irrigation_alert\n" +
		"2025-04-01 10:00:00,650,\n" +
		"2025-04-01 11:00:00,100,1\n" +
		"2025-04-01 12:00:00,100,\n"

	table, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, table, derive(table.Points)))

	want := "timestamp,forecasted_ghi,irrigation_alert\n" +
		"2025-04-01 10:00:00,650,1\n" +
		"2025-04-01 11:00:00,100,1\n" +
		"2025-04-01 12:00:00,100,0\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, "", table.Rows[0][2], "export must not modify the parsed table")
}

func TestParseIn_ZonelessTimestampsUseLocation(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	input := "timestamp,forecasted_ghi\n" +
		"2024-06-01 12:00:00,600\n" +
		"2024-06-01T12:00:00Z,600\n"
	table, err := ParseIn(strings.NewReader(input), kolkata)
	require.NoError(t, err)

	assert.True(t, time.Date(2024, 6, 1, 12, 0, 0, 0, kolkata).Equal(table.Points[0].Timestamp))
	assert.True(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Equal(table.Points[1].Timestamp))

	utc, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC).Equal(utc.Points[0].Timestamp))
}

func TestExport_RecordCountMismatch(t *testing.T) {
	table, err := Parse(strings.NewReader(threeDayCSV))
	require.NoError(t, err)

	err = Export(&bytes.Buffer{}, table, nil)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeInternalExport, appErr.Code)
}
