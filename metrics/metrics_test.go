package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCloudWatch struct {
	input *cloudwatch.PutMetricDataInput
	err   error
}

func (f *fakeCloudWatch) PutMetricDataWithContext(ctx aws.Context, input *cloudwatch.PutMetricDataInput, opts ...request.Option) (*cloudwatch.PutMetricDataOutput, error) {
	f.input = input
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func TestRegister(t *testing.T) {
	r := prometheus.NewRegistry()
	Register(r)

	Commands.WithLabelValues("deploy", "ok").Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(Commands.WithLabelValues("deploy", "ok")))
	assert.Panics(t, func() { Register(r) })
}

func TestPublishCommand(t *testing.T) {
	service := &fakeCloudWatch{}
	p := Publisher{Service: service, Log: zap.NewNop()}

	err := p.PublishCommand(context.Background(), "deploy", 1500*time.Millisecond, true)

	require.Nil(t, err)
	assert.Equal(t, DefaultNamespace, aws.StringValue(service.input.Namespace))
	require.Len(t, service.input.MetricData, 2)
	assert.Equal(t, "CommandDuration", aws.StringValue(service.input.MetricData[0].MetricName))
	assert.Equal(t, 1.5, aws.Float64Value(service.input.MetricData[0].Value))
	assert.Equal(t, "CommandFailed", aws.StringValue(service.input.MetricData[1].MetricName))
	assert.Equal(t, float64(1), aws.Float64Value(service.input.MetricData[1].Value))
	assert.Equal(t, "deploy", aws.StringValue(service.input.MetricData[0].Dimensions[0].Value))
}

func TestPublishCommand_Error(t *testing.T) {
	boom := errors.New("boom")
	p := Publisher{Service: &fakeCloudWatch{err: boom}, Namespace: "Custom", Log: zap.NewNop()}

	err := p.PublishCommand(context.Background(), "list", time.Second, false)

	assert.Equal(t, boom, err)
}

func TestPush(t *testing.T) {
	var path, body string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	r := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "rws_test_total", Help: "test"})
	r.MustRegister(counter)
	counter.Inc()

	err := Push(context.Background(), server.URL, "rws-lambda", r)

	require.Nil(t, err)
	assert.Equal(t, "/metrics/job/rws-lambda", path)
	assert.Contains(t, body, "rws_test_total")
}
