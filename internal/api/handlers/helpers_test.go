package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"sunpump/internal/alerts"
	"sunpump/internal/core"
	"sunpump/internal/forecasts"
	"sunpump/internal/types"
)

const forecastCSV = `timestamp,forecasted_ghi,actual_ghi
2025-04-01 10:00:00,612.5,598.1
2025-04-01 11:00:00,701.25,
2025-04-01 12:00:00,480,455.0
`

type memSource struct {
	mu      sync.Mutex
	content string
	err     error
}

func (s *memSource) Identity() string { return "mem://forecast.csv" }

func (s *memSource) Open(context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.content)), nil
}

func (s *memSource) set(content string, err error) {
	s.mu.Lock()
	s.content, s.err = content, err
	s.mu.Unlock()
}

func newService(src forecasts.Source, rule types.AlertRule) *forecasts.Service {
	return forecasts.NewService(forecasts.NewStore(src, nil), alerts.NewDeriver(rule))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serve routes one request through a bare chi router carrying the given
// registrar, mounted at prefix.
func serve(t *testing.T, prefix string, register func(chi.Router), req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.Use(core.RequestIDMiddleware)
	if prefix == "" {
		register(r)
	} else {
		r.Route(prefix, register)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
