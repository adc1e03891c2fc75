// Package telemetry publishes service metrics to CloudWatch.
package telemetry

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"sunpump/internal/types"
)

// putTimeout bounds a single PutMetricData call so a slow CloudWatch never
// stalls the request that triggered it.
const putTimeout = 2 * time.Second

// CloudWatchClient is the subset of *cloudwatch.Client used here.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Recorder is every metric the service emits.
type Recorder interface {
	RecordRequest(method, endpoint, status string, duration time.Duration)
	RecordForecastLoad(ctx context.Context, ok bool, duration time.Duration)
	RecordAdvisoryPublished(ctx context.Context, level types.AdvisoryLevel, rule types.AlertRule)
}

var (
	_ Recorder = (*CloudWatchMetrics)(nil)
	_ Recorder = Noop{}
)

// CloudWatchMetrics emits metrics with PutMetricData. Failures are logged
// and otherwise ignored.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// NewCloudWatchMetrics publishes into namespace, or types.MetricNamespace
// when empty.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = types.NewSlogAdapter(nil)
	}
	return &CloudWatchMetrics{client: client, namespace: namespace, logger: logger}
}

// RecordRequest emits APILatency and APIRequestCount with Method, Endpoint
// and Status dimensions in one call.
func (m *CloudWatchMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := dimensions(types.DimMethod, method, types.DimEndpoint, endpoint, types.DimStatus, status)
	m.put(context.Background(), "request",
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
	)
}

// RecordForecastLoad emits ForecastLoad in milliseconds with a Result
// dimension of success or failure.
func (m *CloudWatchMetrics) RecordForecastLoad(ctx context.Context, ok bool, duration time.Duration) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.put(ctx, "forecast load", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricForecastLoad),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: dimensions(types.DimResult, result),
	})
}

// RecordAdvisoryPublished counts one published advisory.
func (m *CloudWatchMetrics) RecordAdvisoryPublished(ctx context.Context, level types.AdvisoryLevel, rule types.AlertRule) {
	m.put(ctx, "advisory", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricAdvisoryPublished),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: dimensions(types.DimLevel, string(level), types.DimRule, string(rule)),
	})
}

func (m *CloudWatchMetrics) put(ctx context.Context, what string, data ...cwtypes.MetricDatum) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), putTimeout)
	defer cancel()

	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	})
	if err != nil {
		m.logger.Error("failed to record "+what+" metric", "error", err.Error(), "data_points", strconv.Itoa(len(data)))
	}
}

// dimensions builds CloudWatch dimensions from name/value pairs.
func dimensions(pairs ...string) []cwtypes.Dimension {
	dims := make([]cwtypes.Dimension, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		dims = append(dims, cwtypes.Dimension{Name: aws.String(pairs[i]), Value: aws.String(pairs[i+1])})
	}
	return dims
}

// Noop discards every metric. Used when METRICS_ENABLED is false.
type Noop struct{}

func (Noop) RecordRequest(string, string, string, time.Duration)                           {}
func (Noop) RecordForecastLoad(context.Context, bool, time.Duration)                       {}
func (Noop) RecordAdvisoryPublished(context.Context, types.AdvisoryLevel, types.AlertRule) {}
