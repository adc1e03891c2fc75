// Package main is the entrypoint for the Advisory Worker Lambda function.
//
// An EventBridge schedule invokes the worker after each forecast refresh.
// It reloads the forecast, derives the alert-now signal and publishes a
// localized irrigation advisory to SQS for downstream delivery (SMS, IVR).
// Business logic lives in internal/advisory; this file only wires
// dependencies on cold start.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"sunpump/internal/advisory"
	"sunpump/internal/alerts"
	"sunpump/internal/config"
	"sunpump/internal/external"
	"sunpump/internal/forecasts"
	"sunpump/internal/i18n"
	"sunpump/internal/telemetry"
	"sunpump/internal/types"
)

// Invocation is the optional event payload. Zero fields keep the
// configured defaults.
type Invocation struct {
	PublishAll *bool  `json:"publish_all,omitempty"`
	Language   string `json:"language,omitempty"`
}

// Handler adapts advisory.Worker to the Lambda runtime.
type Handler struct {
	Base   advisory.WorkerConfig
	Logger *slog.Logger
}

// Handle applies per-invocation overrides and runs one advisory cycle.
func (h *Handler) Handle(ctx context.Context, in Invocation) (*advisory.Result, error) {
	cfg := h.Base
	if in.PublishAll != nil {
		cfg.PublishAll = *in.PublishAll
	}
	if in.Language != "" {
		lang, err := i18n.ParseLanguage(in.Language)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeValidationInvalidLanguage, err.Error(), err)
		}
		cfg.Language = lang
	}

	h.Logger.InfoContext(ctx, "advisory worker invoked",
		"language", cfg.Language.Code(),
		"publish_all", cfg.PublishAll,
	)

	res, err := advisory.NewWorker(cfg).Run(ctx)
	if err != nil {
		h.Logger.ErrorContext(ctx, "advisory run failed", "error", err)
		return nil, fmt.Errorf("advisory worker failed: %w", err)
	}

	h.Logger.InfoContext(ctx, "advisory run complete",
		"published", res.Published,
		"message_id", res.MessageID,
		"alert_now", res.AlertNow,
		"level", string(res.Level),
	)
	return res, nil
}

func main() {
	logger := newLogger("")
	logger.Info("Advisory worker initializing (cold start)")

	var provider config.SecretProvider
	if os.Getenv("APP_ENV") != "local" {
		provider = config.NewSSMProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL"))
	}
	cfg, err := config.Load(provider)
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger = newLogger(cfg.LogLevel)
	if cfg.Advisory.QueueURL == "" {
		logger.Error("ADVISORY_QUEUE_URL is required for the advisory worker")
		os.Exit(1)
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logger.Error("Failed to load AWS SDK config", "error", err)
		os.Exit(1)
	}

	handler, err := newHandler(cfg, awsCfg, logger)
	if err != nil {
		logger.Error("Failed to wire advisory worker", "error", err)
		os.Exit(1)
	}

	logger.Info("Advisory worker initialized",
		"queue_url", cfg.Advisory.QueueURL,
		"alert_rule", string(cfg.Forecast.AlertRule),
		"language", handler.Base.Language.Code(),
		"publish_all", handler.Base.PublishAll,
	)

	// Local mode: read the invocation from stdin instead of starting the
	// Lambda runtime. An empty payload runs with defaults.
	// Usage: echo '{"publish_all":true}' | go run ./cmd/advisory-worker
	if cfg.Environment == "local" {
		logger.Info("APP_ENV=local: reading event from stdin")
		payload, err := io.ReadAll(os.Stdin)
		if err != nil {
			logger.Error("Failed to read stdin", "error", err)
			os.Exit(1)
		}
		in, err := parseInvocation(payload)
		if err != nil {
			logger.Error("Invalid invocation payload", "error", err)
			os.Exit(1)
		}
		if _, err := handler.Handle(ctx, in); err != nil {
			os.Exit(1)
		}
		return
	}

	lambda.Start(handler.Handle)
}

// newHandler builds the forecast service, SQS publisher and metrics the
// worker needs.
func newHandler(cfg *config.Config, awsCfg aws.Config, logger *slog.Logger) (*Handler, error) {
	endpoint := cfg.AWS.EndpointURL
	typedLogger := types.NewSlogAdapter(logger)

	loc, err := cfg.Server.Location()
	if err != nil {
		return nil, fmt.Errorf("display timezone: %w", err)
	}

	var metrics telemetry.Recorder = telemetry.Noop{}
	if cfg.Observability.MetricsEnabled {
		cw := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if endpoint != "" {
				o.BaseEndpoint = aws.String(endpoint)
			}
		})
		metrics = telemetry.NewCloudWatchMetrics(cw, cfg.Observability.MetricNamespace, typedLogger)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	httpClient := external.NewClient(
		&http.Client{Timeout: cfg.Forecast.HTTPTimeout},
		"forecast-source",
		external.DefaultRetryPolicy(),
		cfg.Forecast.UserAgent,
	)
	source, err := forecasts.NewSource(cfg.Forecast.Source, forecasts.SourceDeps{S3: s3Client, HTTP: httpClient})
	if err != nil {
		return nil, fmt.Errorf("resolving forecast source: %w", err)
	}
	store := forecasts.NewStore(source, typedLogger,
		forecasts.WithLoadObserver(metrics),
		forecasts.WithLocation(loc),
	)
	svc := forecasts.NewService(store, alerts.NewDeriver(cfg.Forecast.AlertRule, alerts.WithDayLocation(loc)))

	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	lang, err := i18n.ParseLanguage(cfg.Advisory.Language)
	if err != nil {
		return nil, err
	}

	return &Handler{
		Base: advisory.WorkerConfig{
			Forecasts:  svc,
			Publisher:  advisory.NewPublisher(sqsClient, cfg.Advisory.QueueURL, typedLogger),
			Metrics:    metrics,
			Language:   lang,
			PublishAll: cfg.Advisory.PublishAll,
			Logger:     typedLogger,
		},
		Logger: logger,
	}, nil
}

// parseInvocation decodes a stdin payload. Blank input means defaults.
func parseInvocation(payload []byte) (Invocation, error) {
	var in Invocation
	if len(bytes.TrimSpace(payload)) == 0 {
		return in, nil
	}
	if err := json.Unmarshal(payload, &in); err != nil {
		return in, fmt.Errorf("decoding invocation: %w", err)
	}
	return in, nil
}

// newLogger returns a JSON logger at level; unknown levels mean info.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
