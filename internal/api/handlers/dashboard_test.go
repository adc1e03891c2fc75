package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunpump/internal/dashboard"
	"sunpump/internal/types"
)

func newDashboard(t *testing.T, src *memSource) *DashboardHandler {
	t.Helper()
	renderer, err := dashboard.NewRenderer(time.UTC)
	require.NoError(t, err)
	return NewDashboardHandler(newService(src, types.AlertRuleSustained), renderer, discardLogger())
}

func TestHandleDashboard(t *testing.T) {
	h := newDashboard(t, &memSource{content: forecastCSV})

	rec := serve(t, "", h.RegisterRoutes, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))

	page := rec.Body.String()
	assert.Contains(t, page, "Smart Irrigation Forecast Dashboard")
	assert.Contains(t, page, `<div class="banner on">Irrigate Now</div>`)
	assert.Contains(t, page, `href="/v1/forecast/export"`)
	assert.Contains(t, page, "Advisory: start irrigation within the next 15 minutes")
}

func TestHandleDashboard_Language(t *testing.T) {
	h := newDashboard(t, &memSource{content: forecastCSV})

	tests := []struct {
		name   string
		target string
		accept string
		want   string
	}{
		{"query", "/?lang=mr", "", "mr"},
		{"header", "/", "mr", "mr"},
		{"query beats header", "/?lang=en", "mr", "en"},
		{"bad query falls back to header", "/?lang=xx", "mr", "mr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			rec := serve(t, "", h.RegisterRoutes, req)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Content-Language"))
			assert.Contains(t, rec.Body.String(), `<html lang="`+tt.want+`">`)
		})
	}
}

func TestHandleDashboard_SourceError(t *testing.T) {
	h := newDashboard(t, &memSource{err: types.NewAppError(types.ErrCodeNotFoundForecast, "forecast file not found", errors.New("stat"))})

	rec := serve(t, "", h.RegisterRoutes, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "forecast file not found")
}
