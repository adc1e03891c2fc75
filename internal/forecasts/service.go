package forecasts

import (
	"context"
	"io"
	"time"

	"sunpump/internal/alerts"
	"sunpump/internal/i18n"
	"sunpump/internal/types"
)

// View is a forecast snapshot with alerts derived under one rule. It is
// recomputed on every call so a reload is visible immediately.
type View struct {
	Source   string                `json:"source"`
	LoadedAt time.Time             `json:"loaded_at"`
	Points   []types.ForecastPoint `json:"points"`
	Records  []types.AlertRecord   `json:"records"`
	Summary  types.ForecastSummary `json:"summary"`

	table   *Table
	deriver *alerts.Deriver
}

// Advisory composes the imminent-action advisory in lang. It is driven by
// the first record only.
func (v *View) Advisory(lang i18n.Language) types.Advisory {
	level, basedOn := v.deriver.AdvisoryLevel(v.Records)
	labels := i18n.For(lang)
	msg := labels.AdvisoryConserve
	if level == types.AdvisoryIrrigate {
		msg = labels.AdvisoryIrrigate
	}
	return types.Advisory{Level: level, Message: msg, BasedOn: basedOn}
}

// Export writes the forecast as CSV with the original columns untouched
// and irrigation_alert appended when the source lacked it.
func (v *View) Export(w io.Writer) error {
	return Export(w, v.table, v.Records)
}

// Service joins the Store with an alert Deriver.
type Service struct {
	store   *Store
	deriver *alerts.Deriver
}

func NewService(store *Store, deriver *alerts.Deriver) *Service {
	return &Service{store: store, deriver: deriver}
}

// Rule returns the alert-now rule in effect.
func (s *Service) Rule() types.AlertRule {
	return s.deriver.Rule()
}

// Current derives a View from the cached forecast, loading it on first use.
func (s *Service) Current(ctx context.Context) (*View, error) {
	snap, err := s.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(snap), nil
}

// Reload re-reads the source and derives a View from the fresh forecast.
func (s *Service) Reload(ctx context.Context) (*View, error) {
	snap, err := s.store.Reload(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(snap), nil
}

func (s *Service) view(snap *Snapshot) *View {
	records := s.deriver.Records(snap.Table.Points)
	return &View{
		Source:   snap.Source,
		LoadedAt: snap.LoadedAt,
		Points:   snap.Table.Points,
		Records:  records,
		Summary:  s.deriver.Summarize(records),
		table:    snap.Table,
		deriver:  s.deriver,
	}
}

// Name and Check make the Service a health probe: healthy once a forecast
// can be served.
func (s *Service) Name() string { return "forecast" }

func (s *Service) Check(ctx context.Context) error {
	_, err := s.store.Get(ctx)
	return err
}
