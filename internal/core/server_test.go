package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunpump/internal/config"
)

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, discardLogger())
	assert.Error(t, err)

	_, err = NewServer(&config.Config{}, nil)
	assert.Error(t, err)

	srv, err := NewServer(&config.Config{}, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, srv.Validator)
	assert.NotNil(t, srv.Handler())
}

type closingProbe struct {
	mockProbe
	closed bool
	err    error
}

func (p *closingProbe) Close() error {
	p.closed = true
	return p.err
}

func TestServer_ShutdownClosesProbes(t *testing.T) {
	srv := newTestServer(t)
	p := &closingProbe{mockProbe: mockProbe{name: "forecast"}}
	srv.HealthProbes = []HealthProbe{&mockProbe{name: "plain"}, p}

	require.NoError(t, srv.Shutdown(context.Background()))
	assert.True(t, p.closed)
}

func TestServer_ShutdownReportsCloseError(t *testing.T) {
	srv := newTestServer(t)
	boom := errors.New("boom")
	srv.HealthProbes = []HealthProbe{&closingProbe{mockProbe: mockProbe{name: "forecast"}, err: boom}}

	err := srv.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
}
