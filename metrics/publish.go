package metrics

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// DefaultNamespace is the CloudWatch namespace command metrics are published to.
const DefaultNamespace = "RWS/Lambda"

// CloudWatchAPI is the subset of the CloudWatch client used by Publisher.
type CloudWatchAPI interface {
	PutMetricDataWithContext(aws.Context, *cloudwatch.PutMetricDataInput, ...request.Option) (*cloudwatch.PutMetricDataOutput, error)
}

var _ CloudWatchAPI = (*cloudwatch.CloudWatch)(nil)

// Publisher sends the outcome of a command to CloudWatch.
type Publisher struct {
	Service   CloudWatchAPI
	Namespace string
	Log       *zap.Logger
}

// PublishCommand records the duration and failure of one command run.
func (p Publisher) PublishCommand(ctx context.Context, command string, duration time.Duration, failed bool) error {
	namespace := p.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	dimensions := []*cloudwatch.Dimension{{Name: aws.String("Command"), Value: aws.String(command)}}
	failures := 0.0
	if failed {
		failures = 1
	}
	now := time.Now()

	_, err := p.Service.PutMetricDataWithContext(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(namespace),
		MetricData: []*cloudwatch.MetricDatum{
			{
				MetricName: aws.String("CommandDuration"),
				Dimensions: dimensions,
				Timestamp:  aws.Time(now),
				Unit:       aws.String(cloudwatch.StandardUnitSeconds),
				Value:      aws.Float64(duration.Seconds()),
			},
			{
				MetricName: aws.String("CommandFailed"),
				Dimensions: dimensions,
				Timestamp:  aws.Time(now),
				Unit:       aws.String(cloudwatch.StandardUnitCount),
				Value:      aws.Float64(failures),
			},
		},
	})
	if err != nil {
		p.Log.Warn("Publishing command metrics failed.", zap.String("command", command), zap.Error(err))
		return err
	}
	p.Log.Debug("Command metrics published.", zap.String("namespace", namespace), zap.String("command", command))
	return nil
}

// Push sends everything gathered by g to a Prometheus Pushgateway under job.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	return push.New(url, job).Gatherer(g).PushContext(ctx)
}
