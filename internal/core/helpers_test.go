package core

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"sunpump/internal/config"
)

type recordedRequest struct {
	method, endpoint, status string
}

type mockMetrics struct {
	mu    sync.Mutex
	calls []recordedRequest
}

func (m *mockMetrics) RecordRequest(method, endpoint, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, recordedRequest{method, endpoint, status})
}

func (m *mockMetrics) snapshot() []recordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedRequest(nil), m.calls...)
}

type mockProbe struct {
	name  string
	err   error
	delay time.Duration
	panic bool
}

func (p *mockProbe) Name() string { return p.name }

func (p *mockProbe) Check(ctx context.Context) error {
	if p.panic {
		panic("probe exploded")
	}
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		Environment: "local",
		Security:    config.SecurityConfig{CorsAllowedOrigins: []string{"*"}},
		Build:       config.BuildInfo{Version: "test"},
	}
	srv, err := NewServer(cfg, discardLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}
