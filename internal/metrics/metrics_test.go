package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleSummary() TickSummary {
	return TickSummary{
		Duration: 1500 * time.Millisecond,
		HubOutcomes: map[string]string{
			"CLT": OutcomeOK,
			"PHL": OutcomeOK,
			"DCA": OutcomeFetchFailed,
		},
		ActualsRecorded:  2,
		SnapshotsChanged: 1,
		Notified:         true,
	}
}

func TestMetrics_RecordTick(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordTick(context.Background(), sampleSummary())
	m.RecordTick(context.Background(), TickSummary{HubOutcomes: map[string]string{"CLT": OutcomeOK}})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TicksTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HubRefreshes.WithLabelValues("CLT", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HubRefreshes.WithLabelValues("DCA", OutcomeFetchFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ActualsRecorded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TickDuration))
}

func TestMetrics_ObserveHTTP(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveHTTP("GET", "/v1/hubs", 200, 10*time.Millisecond)
	m.ObserveHTTP("GET", "/v1/hubs", 204, 10*time.Millisecond)
	m.ObserveHTTP("GET", "/v1/hubs/{code}/timeline", 404, time.Millisecond)
	m.RecordSkippedTick()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/v1/hubs", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/v1/hubs/{code}/timeline", "4xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TicksSkipped))
}

func TestTickSummary_Failures(t *testing.T) {
	assert.Equal(t, 1, sampleSummary().Failures())
	assert.Equal(t, 0, TickSummary{}.Failures())
}

type mockCloudWatch struct {
	mock.Mock
}

func (m *mockCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	args := m.Called(ctx, params)
	return &cloudwatch.PutMetricDataOutput{}, args.Error(0)
}

func TestCloudWatchTickMetrics_RecordTick(t *testing.T) {
	cw := new(mockCloudWatch)
	cw.On("PutMetricData", mock.Anything, mock.MatchedBy(func(in *cloudwatch.PutMetricDataInput) bool {
		if aws.ToString(in.Namespace) != "HubWatch" || len(in.MetricData) != 4 {
			return false
		}
		return aws.ToString(in.MetricData[1].MetricName) == "HubRefreshFailures" &&
			aws.ToFloat64(in.MetricData[1].Value) == 1 &&
			aws.ToFloat64(in.MetricData[0].Value) == 1500
	})).Return(nil)

	NewCloudWatchTickMetrics(cw, "HubWatch", nil).RecordTick(context.Background(), sampleSummary())
	cw.AssertExpectations(t)
}

func TestCloudWatchTickMetrics_ErrorIsSwallowed(t *testing.T) {
	cw := new(mockCloudWatch)
	cw.On("PutMetricData", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	require.NotPanics(t, func() {
		NewCloudWatchTickMetrics(cw, "HubWatch", nil).RecordTick(context.Background(), sampleSummary())
	})
}

type countingRecorder struct{ n int }

func (c *countingRecorder) RecordTick(context.Context, TickSummary) { c.n++ }

func TestRecorders_FanOut(t *testing.T) {
	a, b := &countingRecorder{}, &countingRecorder{}
	Recorders{a, nil, b}.RecordTick(context.Background(), TickSummary{})
	assert.Equal(t, 1, a.n)
	assert.Equal(t, 1, b.n)
}
