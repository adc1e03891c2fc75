package advisory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"sunpump/internal/forecasts"
	"sunpump/internal/i18n"
	"sunpump/internal/types"
)

// ForecastReloader returns a freshly loaded forecast view.
// *forecasts.Service satisfies it.
type ForecastReloader interface {
	Reload(ctx context.Context) (*forecasts.View, error)
}

// MessagePublisher delivers a Message. *Publisher satisfies it.
type MessagePublisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Metrics counts published advisories.
type Metrics interface {
	RecordAdvisoryPublished(ctx context.Context, level types.AdvisoryLevel, rule types.AlertRule)
}

// Result describes one worker run.
type Result struct {
	Published bool                `json:"published"`
	MessageID string              `json:"message_id,omitempty"`
	AlertNow  bool                `json:"alert_now"`
	Level     types.AdvisoryLevel `json:"level"`
	Points    int                 `json:"points"`
}

// Worker reloads the forecast and publishes an advisory when the alert-now
// signal is raised, or on every run when PublishAll is set.
type Worker struct {
	forecasts  ForecastReloader
	publisher  MessagePublisher
	metrics    Metrics
	language   i18n.Language
	publishAll bool
	logger     types.Logger

	newID func() string
	now   func() time.Time
}

// WorkerConfig holds the Worker's dependencies and switches.
type WorkerConfig struct {
	Forecasts  ForecastReloader
	Publisher  MessagePublisher
	Metrics    Metrics // optional
	Language   i18n.Language
	PublishAll bool
	Logger     types.Logger
}

func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NewSlogAdapter(nil)
	}
	return &Worker{
		forecasts:  cfg.Forecasts,
		publisher:  cfg.Publisher,
		metrics:    cfg.Metrics,
		language:   cfg.Language,
		publishAll: cfg.PublishAll,
		logger:     logger,
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Run performs one reload-derive-publish cycle.
func (w *Worker) Run(ctx context.Context) (*Result, error) {
	v, err := w.forecasts.Reload(ctx)
	if err != nil {
		return nil, err
	}

	adv := v.Advisory(w.language)
	res := &Result{AlertNow: v.Summary.AlertNow, Level: adv.Level, Points: len(v.Records)}

	if !v.Summary.AlertNow && !w.publishAll {
		w.logger.Info("alert-now not raised, advisory skipped",
			"rule", string(v.Summary.Rule),
			"max_forecasted_ghi", v.Summary.MaxForecastedGHI,
		)
		return res, nil
	}

	msg := Message{
		ID:          w.newID(),
		Level:       adv.Level,
		Language:    w.language.Code(),
		Text:        adv.Message,
		BasedOn:     adv.BasedOn,
		AlertNow:    v.Summary.AlertNow,
		Rule:        v.Summary.Rule,
		MaxGHI:      v.Summary.MaxForecastedGHI,
		Source:      v.Source,
		GeneratedAt: w.now().UTC(),
	}
	if err := w.publisher.Publish(ctx, msg); err != nil {
		return nil, err
	}
	if w.metrics != nil {
		w.metrics.RecordAdvisoryPublished(ctx, msg.Level, msg.Rule)
	}

	res.Published = true
	res.MessageID = msg.ID
	return res, nil
}
