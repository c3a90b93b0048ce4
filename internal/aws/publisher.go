package aws

import (
	"context"
	"fmt"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names published per submission.
const (
	MetricSubmissions          = "Submissions"
	MetricNotificationFailures = "NotificationFailures"
)

// MetricsPublisher wraps a CloudWatch client and a namespace.
type MetricsPublisher struct {
	CloudWatch CloudWatchAPI
	Namespace  string
	nowFunc    func() time.Time
}

// NewMetricsPublisher returns a MetricsPublisher bound to a namespace.
func NewMetricsPublisher(cw CloudWatchAPI, namespace string) *MetricsPublisher {
	return &MetricsPublisher{
		CloudWatch: cw,
		Namespace:  namespace,
		nowFunc:    time.Now,
	}
}

// PublishSubmission records one accepted RSVP, dimensioned by attendance,
// plus one NotificationFailures datum per message that could not be sent.
func (p *MetricsPublisher) PublishSubmission(ctx context.Context, attending bool, failedMessages []string) error {
	now := p.nowFunc()
	attendance := "NotAttending"
	if attending {
		attendance = "Attending"
	}

	data := []cwtypes.MetricDatum{
		count(MetricSubmissions, now, "Attendance", attendance),
	}
	for _, msg := range failedMessages {
		data = append(data, count(MetricNotificationFailures, now, "Message", msg))
	}

	_, err := p.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  sdkaws.String(p.Namespace),
		MetricData: data,
	})
	if err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}
	return nil
}

func count(name string, at time.Time, dimension, value string) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: sdkaws.String(name),
		Timestamp:  sdkaws.Time(at),
		Unit:       cwtypes.StandardUnitCount,
		Value:      sdkaws.Float64(1),
		Dimensions: []cwtypes.Dimension{
			{Name: sdkaws.String(dimension), Value: sdkaws.String(value)},
		},
	}
}
