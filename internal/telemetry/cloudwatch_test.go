package telemetry

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sunpump/internal/types"
)

type mockCloudWatch struct {
	calls   []*cloudwatch.PutMetricDataInput
	ctxErrs []error
	err     error
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	m.calls = append(m.calls, in)
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	if m.err != nil {
		return nil, m.err
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func dimMap(dims []cwtypes.Dimension) map[string]string {
	out := make(map[string]string, len(dims))
	for _, d := range dims {
		out[*d.Name] = *d.Value
	}
	return out
}

func TestRecordRequest(t *testing.T) {
	cw := &mockCloudWatch{}
	m := NewCloudWatchMetrics(cw, "", nil)

	m.RecordRequest("GET", "/v1/alerts", "200", 42*time.Millisecond)

	require.Len(t, cw.calls, 1)
	in := cw.calls[0]
	assert.Equal(t, types.MetricNamespace, *in.Namespace)
	require.Len(t, in.MetricData, 2)

	latency, count := in.MetricData[0], in.MetricData[1]
	assert.Equal(t, types.MetricAPILatency, *latency.MetricName)
	assert.Equal(t, 42.0, *latency.Value)
	assert.Equal(t, cwtypes.StandardUnitMilliseconds, latency.Unit)
	assert.Equal(t, types.MetricAPIRequestCount, *count.MetricName)
	assert.Equal(t, 1.0, *count.Value)
	assert.Equal(t, map[string]string{"Method": "GET", "Endpoint": "/v1/alerts", "Status": "200"}, dimMap(count.Dimensions))
}

func TestRecordForecastLoad(t *testing.T) {
	cw := &mockCloudWatch{}
	m := NewCloudWatchMetrics(cw, "SunPumpTest", nil)

	m.RecordForecastLoad(context.Background(), true, time.Second)
	m.RecordForecastLoad(context.Background(), false, time.Second)

	require.Len(t, cw.calls, 2)
	assert.Equal(t, "SunPumpTest", *cw.calls[0].Namespace)
	assert.Equal(t, "success", dimMap(cw.calls[0].MetricData[0].Dimensions)[types.DimResult])
	assert.Equal(t, "failure", dimMap(cw.calls[1].MetricData[0].Dimensions)[types.DimResult])
}

func TestRecordAdvisoryPublished(t *testing.T) {
	cw := &mockCloudWatch{}
	m := NewCloudWatchMetrics(cw, "", nil)

	// A cancelled caller context still lets the metric through.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.RecordAdvisoryPublished(ctx, types.AdvisoryIrrigate, types.AlertRuleSustained)

	require.Len(t, cw.calls, 1)
	assert.NoError(t, cw.ctxErrs[0])
	d := cw.calls[0].MetricData[0]
	assert.Equal(t, types.MetricAdvisoryPublished, *d.MetricName)
	assert.Equal(t, map[string]string{"Level": "irrigate", "AlertRule": "sustained"}, dimMap(d.Dimensions))
}

func TestPutFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := types.NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))
	m := NewCloudWatchMetrics(&mockCloudWatch{err: errors.New("throttled")}, "", logger)

	m.RecordRequest("GET", "/", "200", time.Millisecond)

	assert.Contains(t, buf.String(), "failed to record request metric")
	assert.Contains(t, buf.String(), "throttled")
}

func TestNoop(t *testing.T) {
	var r Recorder = Noop{}
	r.RecordRequest("GET", "/", "200", time.Millisecond)
	r.RecordForecastLoad(context.Background(), true, time.Millisecond)
	r.RecordAdvisoryPublished(context.Background(), types.AdvisoryConserve, types.AlertRulePointwise)
}
