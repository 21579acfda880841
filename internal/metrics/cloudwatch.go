package metrics

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

var _ TickRecorder = (*CloudWatchTickMetrics)(nil)

// CloudWatchTickMetrics publishes one batch of datums per refresh tick:
//   - RefreshTickDuration (milliseconds)
//   - HubRefreshFailures (count)
//   - SnapshotsChanged (count)
//   - ActualsRecorded (count)
type CloudWatchTickMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchTickMetrics creates a recorder publishing to namespace.
func NewCloudWatchTickMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchTickMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchTickMetrics{client: client, namespace: namespace, logger: logger}
}

// RecordTick implements TickRecorder. Publish failures are logged only.
func (m *CloudWatchTickMetrics) RecordTick(ctx context.Context, s TickSummary) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String("RefreshTickDuration"),
				Value:      aws.Float64(float64(s.Duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
			},
			{
				MetricName: aws.String("HubRefreshFailures"),
				Value:      aws.Float64(float64(s.Failures())),
				Unit:       cwtypes.StandardUnitCount,
			},
			{
				MetricName: aws.String("SnapshotsChanged"),
				Value:      aws.Float64(float64(s.SnapshotsChanged)),
				Unit:       cwtypes.StandardUnitCount,
			},
			{
				MetricName: aws.String("ActualsRecorded"),
				Value:      aws.Float64(float64(s.ActualsRecorded)),
				Unit:       cwtypes.StandardUnitCount,
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.ErrorContext(ctx, "failed to publish tick metrics",
			"error", err.Error(),
			"namespace", m.namespace,
		)
	}
}
