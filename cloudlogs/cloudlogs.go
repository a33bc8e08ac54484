// Package cloudlogs follows the CloudWatch log stream of an invoked function.
package cloudlogs

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rws-framework/rws-lambda/internal/awsutil"
)

// Defaults for following a log stream.
const (
	DefaultInterval = 5 * time.Second
	DefaultIdle     = 30 * time.Second
)

// LogsAPI is the subset of the CloudWatch Logs client used by the tailer.
type LogsAPI interface {
	DescribeLogStreamsWithContext(aws.Context, *cloudwatchlogs.DescribeLogStreamsInput, ...request.Option) (*cloudwatchlogs.DescribeLogStreamsOutput, error)
	GetLogEventsWithContext(aws.Context, *cloudwatchlogs.GetLogEventsInput, ...request.Option) (*cloudwatchlogs.GetLogEventsOutput, error)
}

var _ LogsAPI = (*cloudwatchlogs.CloudWatchLogs)(nil)

// LogGroup returns the log group of a Lambda function.
func LogGroup(functionName string) string {
	return "/aws/lambda/" + functionName
}

// Tailer prints new events of a function's latest log stream until the stream stays
// quiet for Idle.
type Tailer struct {
	Service  LogsAPI
	Out      io.Writer
	Interval time.Duration
	Idle     time.Duration
	Log      *zap.Logger
}

// Tail follows the latest log stream of functionName, starting at since. It returns
// nil once no event arrived for the idle period, or the context error on cancellation.
func (t Tailer) Tail(ctx context.Context, functionName string, since time.Time) error {
	interval, idle := t.Interval, t.Idle
	if interval <= 0 {
		interval = DefaultInterval
	}
	if idle <= 0 {
		idle = DefaultIdle
	}
	limiter := rate.NewLimiter(rate.Every(interval), 1)
	group := LogGroup(functionName)

	var (
		stream    string
		token     *string
		lastEvent = time.Now()
		printed   int
	)
	for {
		if err := limiter.Wait(ctx); err != nil {
			// Wait fails early when the next slot lies past the deadline.
			<-ctx.Done()
			return ctx.Err()
		}

		latest, err := t.latestStream(ctx, group)
		if err != nil {
			return err
		}
		if latest != "" && latest != stream {
			stream, token = latest, nil
		}

		if stream != "" {
			events, next, err := t.events(ctx, group, stream, token, since)
			if err != nil {
				return err
			}
			token = next
			for _, e := range events {
				t.print(e)
			}
			if len(events) > 0 {
				printed += len(events)
				lastEvent = time.Now()
			}
		}

		if time.Since(lastEvent) >= idle {
			t.Log.Debug("Log stream idle, stopping.", zap.String("logGroup", group), zap.Int("events", printed))
			return nil
		}
	}
}

func (t Tailer) latestStream(ctx context.Context, group string) (string, error) {
	out, err := t.Service.DescribeLogStreamsWithContext(ctx, &cloudwatchlogs.DescribeLogStreamsInput{
		LogGroupName: aws.String(group),
		OrderBy:      aws.String(cloudwatchlogs.OrderByLastEventTime),
		Descending:   aws.Bool(true),
		Limit:        aws.Int64(1),
	})
	if awsutil.IsCode(err, cloudwatchlogs.ErrCodeResourceNotFoundException) {
		// The group is created with the first log line.
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if len(out.LogStreams) == 0 {
		return "", nil
	}
	return aws.StringValue(out.LogStreams[0].LogStreamName), nil
}

func (t Tailer) events(ctx context.Context, group, stream string, token *string, since time.Time) ([]*cloudwatchlogs.OutputLogEvent, *string, error) {
	input := &cloudwatchlogs.GetLogEventsInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
		StartFromHead: aws.Bool(true),
		NextToken:     token,
	}
	if token == nil && !since.IsZero() {
		input.StartTime = aws.Int64(since.UnixNano() / int64(time.Millisecond))
	}

	out, err := t.Service.GetLogEventsWithContext(ctx, input)
	if err != nil {
		return nil, token, err
	}
	return out.Events, out.NextForwardToken, nil
}

func (t Tailer) print(e *cloudwatchlogs.OutputLogEvent) {
	if t.Out == nil {
		return
	}
	ts := time.Unix(0, aws.Int64Value(e.Timestamp)*int64(time.Millisecond)).UTC()
	fmt.Fprintf(t.Out, "[%s] %s\n", ts.Format(time.RFC3339), strings.TrimRight(aws.StringValue(e.Message), "\n"))
}
