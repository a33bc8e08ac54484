package function_test

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rws-framework/rws-lambda/function"
	"github.com/rws-framework/rws-lambda/internal/poll"
)

// fakeLambda keeps function configurations in memory. Creates and updates report
// Pending/InProgress for pendingPolls lookups before settling.
type fakeLambda struct {
	lambdaiface.LambdaAPI

	mu           sync.Mutex
	pendingPolls int
	functions    map[string]*lambda.FunctionConfiguration
	polls        map[string]int
	urls         map[string]string

	createErr    error
	invokeOutput *lambda.InvokeOutput
	invokeErr    error

	calls       []string
	invokeInput *lambda.InvokeInput
	permissions []*lambda.AddPermissionInput
}

func newFakeLambda() *fakeLambda {
	return &fakeLambda{
		functions: map[string]*lambda.FunctionConfiguration{},
		polls:     map[string]int{},
		urls:      map[string]string{},
	}
}

func notFound() error {
	return awserr.New(lambda.ErrCodeResourceNotFoundException, "Function not found", nil)
}

func (f *fakeLambda) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeLambda) GetFunctionWithContext(ctx aws.Context, input *lambda.GetFunctionInput, opts ...request.Option) (*lambda.GetFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	name := aws.StringValue(input.FunctionName)
	c, ok := f.functions[name]
	if !ok {
		return nil, notFound()
	}
	f.polls[name]++
	if f.polls[name] > f.pendingPolls {
		c.State = aws.String(lambda.StateActive)
		if aws.StringValue(c.LastUpdateStatus) == lambda.LastUpdateStatusInProgress {
			c.LastUpdateStatus = aws.String(lambda.LastUpdateStatusSuccessful)
		}
	}
	copied := *c
	return &lambda.GetFunctionOutput{Configuration: &copied}, nil
}

func (f *fakeLambda) CreateFunctionWithContext(ctx aws.Context, input *lambda.CreateFunctionInput, opts ...request.Option) (*lambda.FunctionConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	name := aws.StringValue(input.FunctionName)
	c := &lambda.FunctionConfiguration{
		FunctionName: input.FunctionName,
		FunctionArn:  aws.String("arn:aws:lambda:us-east-1:123456789012:function:" + name),
		Runtime:      input.Runtime,
		Handler:      input.Handler,
		MemorySize:   input.MemorySize,
		State:        aws.String(lambda.StatePending),
	}
	if input.VpcConfig != nil {
		c.VpcConfig = &lambda.VpcConfigResponse{SubnetIds: input.VpcConfig.SubnetIds, SecurityGroupIds: input.VpcConfig.SecurityGroupIds}
	}
	for _, fs := range input.FileSystemConfigs {
		c.FileSystemConfigs = append(c.FileSystemConfigs, fs)
	}
	f.functions[name] = c
	f.polls[name] = 0
	return c, nil
}

func (f *fakeLambda) startUpdate(name string) (*lambda.FunctionConfiguration, error) {
	c, ok := f.functions[name]
	if !ok {
		return nil, notFound()
	}
	c.LastUpdateStatus = aws.String(lambda.LastUpdateStatusInProgress)
	f.polls[name] = 0
	return c, nil
}

func (f *fakeLambda) UpdateFunctionCodeWithContext(ctx aws.Context, input *lambda.UpdateFunctionCodeInput, opts ...request.Option) (*lambda.FunctionConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("updateCode")
	return f.startUpdate(aws.StringValue(input.FunctionName))
}

func (f *fakeLambda) UpdateFunctionConfigurationWithContext(ctx aws.Context, input *lambda.UpdateFunctionConfigurationInput, opts ...request.Option) (*lambda.FunctionConfiguration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("updateConfiguration")
	c, err := f.startUpdate(aws.StringValue(input.FunctionName))
	if err == nil {
		c.Handler = input.Handler
		c.Runtime = input.Runtime
	}
	return c, err
}

func (f *fakeLambda) DeleteFunctionWithContext(ctx aws.Context, input *lambda.DeleteFunctionInput, opts ...request.Option) (*lambda.DeleteFunctionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete")
	name := aws.StringValue(input.FunctionName)
	if _, ok := f.functions[name]; !ok {
		return nil, notFound()
	}
	delete(f.functions, name)
	return &lambda.DeleteFunctionOutput{}, nil
}

func (f *fakeLambda) InvokeWithContext(ctx aws.Context, input *lambda.InvokeInput, opts ...request.Option) (*lambda.InvokeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("invoke")
	f.invokeInput = input
	return f.invokeOutput, f.invokeErr
}

func (f *fakeLambda) ListFunctionsPagesWithContext(ctx aws.Context, input *lambda.ListFunctionsInput, fn func(*lambda.ListFunctionsOutput, bool) bool, opts ...request.Option) error {
	pages := []*lambda.ListFunctionsOutput{
		{Functions: []*lambda.FunctionConfiguration{
			{FunctionArn: aws.String("arn:aws:lambda:us-east-1:123456789012:function:RWS-hello"), FunctionName: aws.String("RWS-hello"), Runtime: aws.String("nodejs18.x"), MemorySize: aws.Int64(512)},
			{FunctionArn: aws.String("arn:aws:lambda:us-east-1:123456789012:function:other-app"), FunctionName: aws.String("other-app")},
			{FunctionArn: aws.String("arn:aws:lambda:us-east-1:123456789012:function:OTHER-foo"), FunctionName: aws.String("OTHER-foo")},
		}},
		{Functions: []*lambda.FunctionConfiguration{
			{FunctionArn: aws.String("arn:aws:lambda:us-east-1:123456789012:function:RWS-efs-loader"), FunctionName: aws.String("RWS-efs-loader"), Runtime: aws.String("provided.al2023")},
		}},
	}
	for i, page := range pages {
		if !fn(page, i == len(pages)-1) {
			break
		}
	}
	return nil
}

func (f *fakeLambda) GetFunctionUrlConfigWithContext(ctx aws.Context, input *lambda.GetFunctionUrlConfigInput, opts ...request.Option) (*lambda.GetFunctionUrlConfigOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	url, ok := f.urls[aws.StringValue(input.FunctionName)]
	if !ok {
		return nil, notFound()
	}
	return &lambda.GetFunctionUrlConfigOutput{FunctionUrl: aws.String(url)}, nil
}

func (f *fakeLambda) CreateFunctionUrlConfigWithContext(ctx aws.Context, input *lambda.CreateFunctionUrlConfigInput, opts ...request.Option) (*lambda.CreateFunctionUrlConfigOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("createUrl")
	url := "https://" + aws.StringValue(input.FunctionName) + ".lambda-url.us-east-1.on.aws/"
	f.urls[aws.StringValue(input.FunctionName)] = url
	return &lambda.CreateFunctionUrlConfigOutput{FunctionUrl: aws.String(url), AuthType: input.AuthType}, nil
}

func (f *fakeLambda) AddPermissionWithContext(ctx aws.Context, input *lambda.AddPermissionInput, opts ...request.Option) (*lambda.AddPermissionOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.permissions {
		if aws.StringValue(p.StatementId) == aws.StringValue(input.StatementId) {
			return nil, awserr.New(lambda.ErrCodeResourceConflictException, "statement exists", nil)
		}
	}
	f.permissions = append(f.permissions, input)
	return &lambda.AddPermissionOutput{}, nil
}

func newManager(service lambdaiface.LambdaAPI) function.Manager {
	return function.Manager{
		Service:      service,
		Waiter:       poll.Waiter{Log: zap.NewNop()},
		WaitTimeout:  time.Second,
		WaitInterval: time.Millisecond,
		Log:          zap.NewNop(),
	}
}

func deployInput(t *testing.T) function.DeployInput {
	artifact := filepath.Join(t.TempDir(), "RWS-hello.zip")
	require.Nil(t, os.WriteFile(artifact, []byte("PK"), 0o644))
	return function.DeployInput{
		Name:         "hello",
		ArtifactPath: artifact,
		Role:         "arn:aws:iam::123456789012:role/rws",
		Runtime:      "nodejs18.x",
		Handler:      "index.handler",
		MemorySize:   512,
		Timeout:      300,
		VPCConfig:    &function.VPCConfig{SubnetIDs: []string{"subnet-1"}, SecurityGroupIDs: []string{"sg-1"}},
		FileSystem:   &function.FileSystemConfig{AccessPointARN: "arn:ap", MountPath: "/mnt/efs"},
	}
}

func TestName(t *testing.T) {
	assert.Equal(t, "RWS-hello", function.Name("hello"))
	assert.Equal(t, "RWS-hello", function.Name("RWS-hello"))
	assert.Equal(t, "hello", function.Target("RWS-hello"))
}

func TestDeploy_Creates(t *testing.T) {
	service := newFakeLambda()
	service.pendingPolls = 2
	m := newManager(service)

	fn, err := m.Deploy(context.Background(), deployInput(t))

	require.Nil(t, err)
	assert.Equal(t, "RWS-hello", fn.Name)
	assert.Equal(t, lambda.StateActive, fn.State)
	assert.Equal(t, []string{"subnet-1"}, fn.VPCConfig.SubnetIDs)
	assert.Equal(t, &function.FileSystemConfig{AccessPointARN: "arn:ap", MountPath: "/mnt/efs"}, fn.FileSystemConfig)
	assert.Equal(t, []string{"create"}, service.calls)
}

func TestDeploy_UpdatesExisting(t *testing.T) {
	service := newFakeLambda()
	m := newManager(service)
	_, err := m.Deploy(context.Background(), deployInput(t))
	require.Nil(t, err)
	service.pendingPolls = 1

	input := deployInput(t)
	input.Handler = "app.handler"
	fn, err := m.Deploy(context.Background(), input)

	require.Nil(t, err)
	assert.Equal(t, "app.handler", fn.Handler)
	assert.Equal(t, lambda.LastUpdateStatusSuccessful, fn.LastUpdateStatus)
	assert.Equal(t, []string{"create", "updateConfiguration", "updateCode"}, service.calls)
}

func TestDeploy_ConflictFallsBackToUpdate(t *testing.T) {
	service := newFakeLambda()
	service.createErr = awserr.New(lambda.ErrCodeResourceConflictException, "exists", nil)
	service.functions["RWS-hello"] = &lambda.FunctionConfiguration{
		FunctionName: aws.String("RWS-hello"),
		State:        aws.String(lambda.StateActive),
	}
	m := newManager(&hiddenOnce{fakeLambda: service})

	_, err := m.Deploy(context.Background(), deployInput(t))

	require.Nil(t, err)
	assert.Equal(t, []string{"create", "updateConfiguration", "updateCode"}, service.calls)
}

// hiddenOnce reports the function as missing on the first lookup, like a function
// created by another caller right after it.
type hiddenOnce struct {
	*fakeLambda
	seen bool
}

func (h *hiddenOnce) GetFunctionWithContext(ctx aws.Context, input *lambda.GetFunctionInput, opts ...request.Option) (*lambda.GetFunctionOutput, error) {
	if !h.seen {
		h.seen = true
		return nil, notFound()
	}
	return h.fakeLambda.GetFunctionWithContext(ctx, input, opts...)
}

func TestDeploy_FailedState(t *testing.T) {
	service := newFakeLambda()
	service.pendingPolls = 100
	m := newManager(&failingLambda{fakeLambda: service})

	_, err := m.Deploy(context.Background(), deployInput(t))

	assert.Equal(t, &function.ErrFunctionDeployFailed{Name: "RWS-hello", Reason: "bad subnet"}, err)
}

type failingLambda struct {
	*fakeLambda
}

func (f *failingLambda) GetFunctionWithContext(ctx aws.Context, input *lambda.GetFunctionInput, opts ...request.Option) (*lambda.GetFunctionOutput, error) {
	out, err := f.fakeLambda.GetFunctionWithContext(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	out.Configuration.State = aws.String(lambda.StateFailed)
	out.Configuration.StateReason = aws.String("bad subnet")
	return out, nil
}

func TestDeploy_Validation(t *testing.T) {
	m := newManager(newFakeLambda())
	input := deployInput(t)
	input.Role = ""

	_, err := m.Deploy(context.Background(), input)

	_, ok := err.(*function.ErrFunctionValidation)
	assert.True(t, ok)
}

func TestWaitFor_Timeout(t *testing.T) {
	service := newFakeLambda()
	service.functions["RWS-hello"] = &lambda.FunctionConfiguration{
		FunctionName: aws.String("RWS-hello"),
		State:        aws.String(lambda.StatePending),
	}
	service.pendingPolls = 1000
	m := newManager(service)

	err := m.WaitFor(context.Background(), "hello", function.Active, 5*time.Millisecond, time.Millisecond)

	_, ok := err.(*poll.ErrTimeout)
	assert.True(t, ok)
}

func TestInvoke(t *testing.T) {
	service := newFakeLambda()
	service.invokeOutput = &lambda.InvokeOutput{
		StatusCode: aws.Int64(200),
		Payload:    []byte(`{"ok":true}`),
		LogResult:  aws.String(base64.StdEncoding.EncodeToString([]byte("START RequestId: 1"))),
	}
	m := newManager(service)

	invocation, err := m.Invoke(context.Background(), "hello", []byte(`{}`), function.RequestResponse)

	require.Nil(t, err)
	assert.Equal(t, int64(200), invocation.StatusCode)
	assert.Equal(t, []byte(`{"ok":true}`), invocation.Payload)
	assert.Equal(t, "START RequestId: 1", invocation.Log)
	assert.Equal(t, "RWS-hello", aws.StringValue(service.invokeInput.FunctionName))
	assert.Equal(t, lambda.LogTypeTail, aws.StringValue(service.invokeInput.LogType))
}

func TestInvoke_FunctionError(t *testing.T) {
	service := newFakeLambda()
	service.invokeOutput = &lambda.InvokeOutput{
		StatusCode:    aws.Int64(200),
		Payload:       []byte(`{"errorMessage":"boom"}`),
		FunctionError: aws.String("Unhandled"),
	}
	m := newManager(service)

	invocation, err := m.Invoke(context.Background(), "hello", nil, function.RequestResponse)

	assert.Equal(t, &function.ErrFunctionError{Name: "RWS-hello", Message: "Unhandled"}, err)
	assert.Equal(t, "Unhandled", invocation.FunctionError)
}

func TestInvoke_AccessDenied(t *testing.T) {
	service := newFakeLambda()
	denied := awserr.New("AccessDeniedException", "no", nil)
	service.invokeErr = denied
	m := newManager(service)

	_, err := m.Invoke(context.Background(), "hello", nil, function.Event)

	assert.Equal(t, &function.ErrFunctionAccessDenied{Original: denied}, err)
	assert.Nil(t, service.invokeInput.LogType)
}

func TestDelete_NotFound(t *testing.T) {
	service := newFakeLambda()
	m := newManager(service)

	err := m.Delete(context.Background(), "hello")

	assert.Equal(t, &function.ErrFunctionNotFound{Name: "RWS-hello"}, err)
	assert.NotContains(t, service.calls, "delete")
}

func TestDelete(t *testing.T) {
	service := newFakeLambda()
	service.functions["RWS-hello"] = &lambda.FunctionConfiguration{FunctionName: aws.String("RWS-hello")}
	m := newManager(service)

	err := m.Delete(context.Background(), "hello")

	assert.Nil(t, err)
	exists, err := m.Exists(context.Background(), "hello")
	assert.Nil(t, err)
	assert.False(t, exists)
}

func TestList(t *testing.T) {
	m := newManager(newFakeLambda())

	summaries, err := m.List(context.Background())

	require.Nil(t, err)
	assert.Equal(t, []function.Summary{
		{ARN: "arn:aws:lambda:us-east-1:123456789012:function:RWS-hello", Name: "RWS-hello", Runtime: "nodejs18.x", MemorySize: 512},
		{ARN: "arn:aws:lambda:us-east-1:123456789012:function:RWS-efs-loader", Name: "RWS-efs-loader", Runtime: "provided.al2023"},
	}, summaries)
}

func TestOpenToWeb(t *testing.T) {
	service := newFakeLambda()
	service.functions["RWS-hello"] = &lambda.FunctionConfiguration{FunctionName: aws.String("RWS-hello")}
	m := newManager(service)

	url, err := m.OpenToWeb(context.Background(), "hello")
	require.Nil(t, err)
	again, err := m.OpenToWeb(context.Background(), "hello")
	require.Nil(t, err)

	assert.Equal(t, "https://RWS-hello.lambda-url.us-east-1.on.aws/", url)
	assert.Equal(t, url, again)
	assert.Equal(t, []string{"createUrl"}, service.calls)
	require.Len(t, service.permissions, 1)
	assert.Equal(t, "*", aws.StringValue(service.permissions[0].Principal))
	assert.Equal(t, "lambda:InvokeFunctionUrl", aws.StringValue(service.permissions[0].Action))
}

func TestOpenToWeb_NotFound(t *testing.T) {
	m := newManager(newFakeLambda())

	_, err := m.OpenToWeb(context.Background(), "hello")

	assert.Equal(t, &function.ErrFunctionNotFound{Name: "RWS-hello"}, err)
}
