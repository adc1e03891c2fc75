package core

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"sunpump/internal/types"
)

func requestWithID(id string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/v1/forecast", nil)
	return r.WithContext(types.WithRequestID(r.Context(), id))
}

func TestData(t *testing.T) {
	rec := httptest.NewRecorder()
	Data(rec, requestWithID("r1"), http.StatusOK, map[string]int{"points": 72})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"points":72}}`, rec.Body.String())
}

func TestJSON_MarshalFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, requestWithID("r1"), http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to marshal response")
}

func TestError_Mapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "validation with details",
			err:    types.NewAppErrorWithDetails(types.ErrCodeValidationMissingColumn, "forecast is missing a required column", nil, map[string]any{"column": "forecasted_ghi"}),
			status: http.StatusBadRequest,
			body:   `{"error":{"code":"validation_forecast_missing_column","message":"forecast is missing a required column","details":{"column":"forecasted_ghi"},"request_id":"r1"}}`,
		},
		{
			name:   "wrapped not found",
			err:    fmt.Errorf("loading: %w", types.NewAppError(types.ErrCodeNotFoundForecast, "forecast file not found", nil)),
			status: http.StatusNotFound,
			body:   `{"error":{"code":"not_found_forecast","message":"forecast file not found","request_id":"r1"}}`,
		},
		{
			name:   "upstream",
			err:    types.NewAppError(types.ErrCodeUpstreamForecast, "forecast source unavailable", errors.New("dial tcp")),
			status: http.StatusBadGateway,
			body:   `{"error":{"code":"upstream_forecast_unavailable","message":"forecast source unavailable","request_id":"r1"}}`,
		},
		{
			name:   "generic error hides message",
			err:    errors.New("pq: password authentication failed"),
			status: http.StatusInternalServerError,
			body:   `{"error":{"code":"internal_unexpected_error","message":"an unexpected error occurred","request_id":"r1"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			Error(rec, requestWithID("r1"), tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.JSONEq(t, tt.body, rec.Body.String())
		})
	}
}
