package forecasts

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"sunpump/internal/types"
)

// Snapshot is an immutable loaded forecast together with where and when it
// was loaded. Callers must not modify the Table.
type Snapshot struct {
	Source   string
	LoadedAt time.Time
	Table    *Table
}

// LoadObserver is told about every load attempt, successful or not.
type LoadObserver interface {
	RecordForecastLoad(ctx context.Context, ok bool, duration time.Duration)
}

// loadTimeout bounds a shared read. The read outlives the caller that
// started it, since other callers may be waiting on it.
const loadTimeout = 30 * time.Second

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLoadObserver reports load outcomes to o.
func WithLoadObserver(o LoadObserver) StoreOption {
	return func(s *Store) { s.observer = o }
}

// WithLocation sets the zone for timestamps that carry none. Defaults to UTC.
func WithLocation(loc *time.Location) StoreOption {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// Store loads a forecast once and serves it until Invalidate or Reload is
// called. Concurrent first loads share a single read of the source. Failed
// loads are never cached.
type Store struct {
	source   Source
	logger   types.Logger
	observer LoadObserver
	loc      *time.Location
	now      func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	current *Snapshot
	// gen advances on Invalidate and Reload; a read started under an older
	// generation is returned to its callers but not cached.
	gen uint64
}

// NewStore creates a Store over source. Nothing is read until the first Get.
func NewStore(source Source, logger types.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = types.NewSlogAdapter(nil)
	}
	s := &Store{
		source: source,
		logger: logger.With("source", source.Identity()),
		loc:    time.UTC,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity returns the identity of the underlying source.
func (s *Store) Identity() string {
	return s.source.Identity()
}

// Get returns the cached snapshot, loading it on first use.
func (s *Store) Get(ctx context.Context) (*Snapshot, error) {
	s.mu.RLock()
	snap := s.current
	s.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return s.load(ctx, false)
}

// Reload reads the source again and replaces the cached snapshot on
// success. On failure the previous snapshot, if any, stays in place.
func (s *Store) Reload(ctx context.Context) (*Snapshot, error) {
	return s.load(ctx, true)
}

// Invalidate drops the cached snapshot; the next Get reloads it.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.current = nil
	s.gen++
	s.mu.Unlock()
	s.logger.Info("forecast cache invalidated")
}

// Loaded reports whether a snapshot is currently cached.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

func (s *Store) load(ctx context.Context, force bool) (*Snapshot, error) {
	key := "get"
	if force {
		key = "reload"
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		s.mu.Lock()
		if !force && s.current != nil {
			snap := s.current
			s.mu.Unlock()
			return snap, nil
		}
		if force {
			s.gen++
		}
		gen := s.gen
		s.mu.Unlock()

		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		start := s.now()
		table, err := s.read(readCtx)
		if s.observer != nil {
			s.observer.RecordForecastLoad(readCtx, err == nil, s.now().Sub(start))
		}
		if err != nil {
			s.logger.Error("forecast load failed", "error", err.Error(), "forced", force)
			return nil, err
		}

		snap := &Snapshot{Source: s.source.Identity(), LoadedAt: s.now(), Table: table}
		s.mu.Lock()
		stale := s.gen != gen
		if !stale {
			s.current = snap
		}
		s.mu.Unlock()

		s.logger.Info("forecast loaded",
			"points", len(table.Points),
			"has_alert_column", table.HasAlertColumn,
			"duration_ms", s.now().Sub(start).Milliseconds(),
			"forced", force,
			"cached", !stale,
		)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (s *Store) read(ctx context.Context) (*Table, error) {
	body, err := s.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseIn(body, s.loc)
}
