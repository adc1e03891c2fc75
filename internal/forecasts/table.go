// Package forecasts loads the precomputed GHI forecast table, caches it for
// the life of the process, and re-serializes it with derived pump flags.
package forecasts

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"sunpump/internal/types"
)

// Column names of the forecast file contract.
const (
	ColTimestamp       = "timestamp"
	ColForecastedGHI   = "forecasted_ghi"
	ColActualGHI       = "actual_ghi"
	ColIrrigationAlert = "irrigation_alert"
)

// timestampLayouts are tried in order. The space-separated forms are what
// pandas writes for datetime columns.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	time.DateTime,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.DateOnly,
}

// Table is a parsed forecast file. Header and Rows hold the original cell
// text so that Export reproduces every input column unchanged; Points holds
// the typed view used for derivation. Rows[i] corresponds to Points[i].
type Table struct {
	Header         []string
	Rows           [][]string
	Points         []types.ForecastPoint
	HasAlertColumn bool
}

// Parse reads a forecast CSV whose zone-less timestamps are UTC.
func Parse(r io.Reader) (*Table, error) {
	return ParseIn(r, time.UTC)
}

// ParseIn reads a forecast CSV. The timestamp and forecasted_ghi columns are
// required; actual_ghi and irrigation_alert are optional. Header matching is
// case-insensitive and ignores surrounding whitespace. Timestamps without a
// zone are wall-clock times in loc. Cells are kept verbatim in Rows.
func ParseIn(r io.Reader, loc *time.Location) (*Table, error) {
	if loc == nil {
		loc = time.UTC
	}
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, types.NewAppError(types.ErrCodeValidationEmptyForecast, "forecast file has no header row", nil)
	}
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeValidationMalformed, "failed to read forecast header", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	cols := indexColumns(header)
	for _, required := range []string{ColTimestamp, ColForecastedGHI} {
		if _, ok := cols[required]; !ok {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeValidationMissingColumn,
				fmt.Sprintf("forecast file is missing required column %q", required),
				nil,
				map[string]any{"column": required, "header": header},
			)
		}
	}

	t := &Table{Header: header}
	_, t.HasAlertColumn = cols[ColIrrigationAlert]

	// Line 1 is the header.
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeValidationMalformed, "failed to read forecast row", err,
				map[string]any{"line": line},
			)
		}

		point, err := parsePoint(record, cols, line, loc)
		if err != nil {
			return nil, err
		}
		t.Rows = append(t.Rows, record)
		t.Points = append(t.Points, point)
	}

	return t, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := cols[key]; !dup {
			cols[key] = i
		}
	}
	return cols
}

func parsePoint(record []string, cols map[string]int, line int, loc *time.Location) (types.ForecastPoint, error) {
	var p types.ForecastPoint

	ts, err := ParseTimestamp(record[cols[ColTimestamp]], loc)
	if err != nil {
		return p, malformed(line, ColTimestamp, record[cols[ColTimestamp]], err)
	}
	p.Timestamp = ts

	raw := strings.TrimSpace(record[cols[ColForecastedGHI]])
	ghi, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return p, malformed(line, ColForecastedGHI, raw, err)
	}
	p.ForecastedGHI = ghi

	if i, ok := cols[ColActualGHI]; ok {
		if raw := strings.TrimSpace(record[i]); raw != "" && !strings.EqualFold(raw, "nan") {
			actual, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return p, malformed(line, ColActualGHI, raw, err)
			}
			p.ActualGHI = &actual
		}
	}

	if i, ok := cols[ColIrrigationAlert]; ok {
		if raw := strings.TrimSpace(record[i]); raw != "" {
			flag, err := parseFlag(raw)
			if err != nil {
				return p, malformed(line, ColIrrigationAlert, raw, err)
			}
			p.IrrigationAlert = &flag
		}
	}

	return p, nil
}

// ParseTimestamp accepts the timestamp formats produced by common forecast
// exporters. Values without a zone are interpreted in loc, or UTC when loc
// is nil.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

func parseFlag(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "1", "1.0", "true", "yes":
		return true, nil
	case "0", "0.0", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized alert flag %q", raw)
}

func malformed(line int, column, value string, err error) *types.AppError {
	return types.NewAppErrorWithDetails(
		types.ErrCodeValidationMalformed,
		fmt.Sprintf("invalid %s value on line %d", column, line),
		err,
		map[string]any{"line": line, "column": column, "value": value},
	)
}

// Export writes t back out as CSV. Original columns and cells are written
// unchanged, except that an empty irrigation_alert cell is filled with the
// derived flag. When the source had no irrigation_alert column, one is
// appended holding the derived flag as 1 or 0. records must be the
// derivation of t.Points, one per row.
func Export(w io.Writer, t *Table, records []types.AlertRecord) error {
	if len(records) != len(t.Rows) {
		return types.NewAppError(
			types.ErrCodeInternalExport,
			fmt.Sprintf("export has %d records for %d rows", len(records), len(t.Rows)),
			nil,
		)
	}

	bw := bufio.NewWriter(w)

	alertCol := -1
	if t.HasAlertColumn {
		alertCol = indexColumns(t.Header)[ColIrrigationAlert]
	}

	header := t.Header
	if !t.HasAlertColumn {
		header = append(append([]string(nil), t.Header...), ColIrrigationAlert)
	}
	if err := writeRecord(bw, header); err != nil {
		return fmt.Errorf("writing export header: %w", err)
	}

	for i, row := range t.Rows {
		switch {
		case !t.HasAlertColumn:
			row = append(append([]string(nil), row...), formatFlag(records[i].IrrigationAlert))
		case strings.TrimSpace(row[alertCol]) == "":
			row = append([]string(nil), row...)
			row[alertCol] = formatFlag(records[i].IrrigationAlert)
		}
		if err := writeRecord(bw, row); err != nil {
			return fmt.Errorf("writing export row %d: %w", i+1, err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flushing export: %w", err)
	}
	return nil
}

// writeRecord writes one CSV line. Unlike csv.Writer it does not quote
// fields that merely start with a space, so such cells are written back
// exactly as read.
func writeRecord(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		if strings.ContainsAny(f, ",\"\r\n") {
			w.WriteByte('"')
			w.WriteString(strings.ReplaceAll(f, `"`, `""`))
			w.WriteByte('"')
			continue
		}
		w.WriteString(f)
	}
	return w.WriteByte('\n')
}

func formatFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
