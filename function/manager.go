package function

import (
	"context"
	"encoding/base64"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/lambda/lambdaiface"
	"go.uber.org/zap"
	validator "gopkg.in/go-playground/validator.v9"

	"github.com/rws-framework/rws-lambda/internal/awsutil"
	"github.com/rws-framework/rws-lambda/internal/poll"
	rwszap "github.com/rws-framework/rws-lambda/internal/zap"
)

// Default bounds of deploy waits.
const (
	DefaultWaitTimeout  = 5 * time.Minute
	DefaultWaitInterval = 3 * time.Second
)

const publicURLStatement = "rws-public-url"

// Manager creates, updates, invokes and deletes RWS functions.
type Manager struct {
	Service      lambdaiface.LambdaAPI
	Waiter       poll.Waiter
	WaitTimeout  time.Duration
	WaitInterval time.Duration
	Log          *zap.Logger
}

// Get returns the deployed function or *ErrFunctionNotFound.
func (m Manager) Get(ctx context.Context, name string) (*Function, error) {
	name = Name(name)
	out, err := m.Service.GetFunctionWithContext(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(name)})
	if awsutil.IsCode(err, lambda.ErrCodeResourceNotFoundException) {
		return nil, &ErrFunctionNotFound{Name: name}
	}
	if err != nil {
		return nil, err
	}
	return fromConfiguration(out.Configuration), nil
}

// Exists reports whether the function is deployed.
func (m Manager) Exists(ctx context.Context, name string) (bool, error) {
	_, err := m.Get(ctx, name)
	if _, ok := err.(*ErrFunctionNotFound); ok {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Deploy creates the function when it doesn't exist and updates its configuration
// and code otherwise. It returns once the function is ready to be invoked.
func (m Manager) Deploy(ctx context.Context, input DeployInput) (*Function, error) {
	if err := validator.New().Struct(input); err != nil {
		return nil, &ErrFunctionValidation{Message: err.Error()}
	}
	name := Name(input.Name)

	code, err := os.ReadFile(input.ArtifactPath)
	if err != nil {
		return nil, &ErrFunctionValidation{Message: "Unable to read artifact: " + err.Error()}
	}

	exists, err := m.Exists(ctx, name)
	if err != nil {
		return nil, err
	}
	m.Log.Debug("Deploying function.",
		zap.String("name", name),
		zap.Int("codeSize", len(code)),
		zap.Object("environment", rwszap.Fields(input.Environment)))

	if !exists {
		created, err := m.create(ctx, name, input, code)
		if err == nil {
			m.Log.Info("Function created.", zap.Object("function", *created))
			return created, nil
		}
		if !awsutil.IsCode(err, lambda.ErrCodeResourceConflictException) {
			m.Log.Error("Creating function failed.", zap.String("name", name), zap.Error(err))
			return nil, err
		}
		m.Log.Debug("Function created concurrently, updating instead.", zap.String("name", name))
	}

	updated, err := m.update(ctx, name, input, code)
	if err != nil {
		m.Log.Error("Updating function failed.", zap.String("name", name), zap.Error(err))
		return nil, err
	}
	m.Log.Info("Function updated.", zap.Object("function", *updated))
	return updated, nil
}

func (m Manager) create(ctx context.Context, name string, input DeployInput, code []byte) (*Function, error) {
	_, err := m.Service.CreateFunctionWithContext(ctx, &lambda.CreateFunctionInput{
		FunctionName:      aws.String(name),
		Role:              aws.String(input.Role),
		Runtime:           aws.String(input.Runtime),
		Handler:           aws.String(input.Handler),
		MemorySize:        aws.Int64(input.MemorySize),
		Timeout:           aws.Int64(input.Timeout),
		Code:              &lambda.FunctionCode{ZipFile: code},
		VpcConfig:         vpcConfig(input.VPCConfig),
		FileSystemConfigs: fileSystemConfigs(input.FileSystem),
		Environment:       environment(input.Environment),
	})
	if err != nil {
		return nil, err
	}
	return m.waitFor(ctx, name, Active)
}

func (m Manager) update(ctx context.Context, name string, input DeployInput, code []byte) (*Function, error) {
	if _, err := m.waitFor(ctx, name, Updated); err != nil {
		return nil, err
	}

	_, err := m.Service.UpdateFunctionConfigurationWithContext(ctx, &lambda.UpdateFunctionConfigurationInput{
		FunctionName:      aws.String(name),
		Role:              aws.String(input.Role),
		Runtime:           aws.String(input.Runtime),
		Handler:           aws.String(input.Handler),
		MemorySize:        aws.Int64(input.MemorySize),
		Timeout:           aws.Int64(input.Timeout),
		VpcConfig:         vpcConfig(input.VPCConfig),
		FileSystemConfigs: fileSystemConfigs(input.FileSystem),
		Environment:       environment(input.Environment),
	})
	if err != nil {
		return nil, err
	}
	if _, err := m.waitFor(ctx, name, Updated); err != nil {
		return nil, err
	}

	_, err = m.Service.UpdateFunctionCodeWithContext(ctx, &lambda.UpdateFunctionCodeInput{
		FunctionName: aws.String(name),
		ZipFile:      code,
	})
	if err != nil {
		return nil, err
	}
	return m.waitFor(ctx, name, Updated)
}

// WaitFor polls the function every interval until cond holds or timeout elapses.
// A function reporting a failed state stops the wait with *ErrFunctionDeployFailed.
func (m Manager) WaitFor(ctx context.Context, name string, cond Condition, timeout, interval time.Duration) error {
	_, err := m.waitForWith(ctx, Name(name), cond, poll.Fixed(interval, timeout))
	return err
}

func (m Manager) waitFor(ctx context.Context, name string, cond Condition) (*Function, error) {
	timeout, interval := m.WaitTimeout, m.WaitInterval
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	if interval <= 0 {
		interval = DefaultWaitInterval
	}
	return m.waitForWith(ctx, name, cond, poll.Fixed(interval, timeout))
}

func (m Manager) waitForWith(ctx context.Context, name string, cond Condition, policy poll.Policy) (*Function, error) {
	var last *Function
	err := m.Waiter.UntilWith(ctx, policy, "function", name, func(ctx context.Context) (bool, error) {
		fn, err := m.Get(ctx, name)
		if _, ok := err.(*ErrFunctionNotFound); ok {
			// Newly created functions may not be visible yet.
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if fn.State == lambda.StateFailed || fn.LastUpdateStatus == lambda.LastUpdateStatusFailed {
			return false, &ErrFunctionDeployFailed{Name: name, Reason: fn.StateReason}
		}
		last = fn
		return cond(fn), nil
	})
	if err != nil {
		return nil, err
	}
	return last, nil
}

// Invoke calls the function with payload. Synchronous invocations return the tail of
// the execution log. A function that ran but failed returns both the invocation and
// *ErrFunctionError.
func (m Manager) Invoke(ctx context.Context, name string, payload []byte, invocationType InvocationType) (*Invocation, error) {
	name = Name(name)
	if invocationType == "" {
		invocationType = RequestResponse
	}

	input := &lambda.InvokeInput{
		FunctionName:   aws.String(name),
		InvocationType: aws.String(string(invocationType)),
		Payload:        payload,
	}
	if invocationType == RequestResponse {
		input.LogType = aws.String(lambda.LogTypeTail)
	}

	out, err := m.Service.InvokeWithContext(ctx, input)
	if err != nil {
		switch awsutil.Code(err) {
		case lambda.ErrCodeResourceNotFoundException:
			return nil, &ErrFunctionNotFound{Name: name}
		case "AccessDeniedException",
			"ExpiredTokenException",
			"UnrecognizedClientException":
			return nil, &ErrFunctionAccessDenied{Original: err}
		case lambda.ErrCodeServiceException:
			return nil, &ErrFunctionProviderError{Original: err}
		default:
			return nil, &ErrFunctionCallFailed{Original: err}
		}
	}

	invocation := &Invocation{
		StatusCode:      aws.Int64Value(out.StatusCode),
		Payload:         out.Payload,
		FunctionError:   aws.StringValue(out.FunctionError),
		ExecutedVersion: aws.StringValue(out.ExecutedVersion),
	}
	if out.LogResult != nil {
		decoded, err := base64.StdEncoding.DecodeString(aws.StringValue(out.LogResult))
		if err != nil {
			m.Log.Debug("Unable to decode invocation log.", zap.String("name", name), zap.Error(err))
		} else {
			invocation.Log = string(decoded)
		}
	}

	m.Log.Debug("Function invoked.", zap.String("name", name), zap.Object("invocation", *invocation))
	if invocation.FunctionError != "" {
		return invocation, &ErrFunctionError{Name: name, Message: invocation.FunctionError}
	}
	return invocation, nil
}

// Delete removes the function. A missing function yields *ErrFunctionNotFound and
// nothing is deleted.
func (m Manager) Delete(ctx context.Context, name string) error {
	name = Name(name)
	exists, err := m.Exists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return &ErrFunctionNotFound{Name: name}
	}

	_, err = m.Service.DeleteFunctionWithContext(ctx, &lambda.DeleteFunctionInput{FunctionName: aws.String(name)})
	if awsutil.IsCode(err, lambda.ErrCodeResourceNotFoundException) {
		return &ErrFunctionNotFound{Name: name}
	}
	if err != nil {
		return err
	}

	m.Log.Info("Function deleted.", zap.String("name", name))
	return nil
}

// List returns all deployed RWS functions.
func (m Manager) List(ctx context.Context) ([]Summary, error) {
	summaries := []Summary{}
	err := m.Service.ListFunctionsPagesWithContext(ctx, &lambda.ListFunctionsInput{}, func(page *lambda.ListFunctionsOutput, last bool) bool {
		for _, c := range page.Functions {
			name := aws.StringValue(c.FunctionName)
			if !strings.HasPrefix(name, Prefix) {
				continue
			}
			summaries = append(summaries, Summary{
				ARN:          aws.StringValue(c.FunctionArn),
				Name:         name,
				Runtime:      aws.StringValue(c.Runtime),
				LastModified: aws.StringValue(c.LastModified),
				MemorySize:   aws.Int64Value(c.MemorySize),
			})
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// OpenToWeb exposes the function through a public function URL and returns the URL.
// An existing URL is reused.
func (m Manager) OpenToWeb(ctx context.Context, name string) (string, error) {
	name = Name(name)

	existing, err := m.Service.GetFunctionUrlConfigWithContext(ctx, &lambda.GetFunctionUrlConfigInput{FunctionName: aws.String(name)})
	var url string
	switch {
	case err == nil:
		url = aws.StringValue(existing.FunctionUrl)
	case awsutil.IsCode(err, lambda.ErrCodeResourceNotFoundException):
		if ok, err := m.Exists(ctx, name); err != nil {
			return "", err
		} else if !ok {
			return "", &ErrFunctionNotFound{Name: name}
		}
		created, err := m.Service.CreateFunctionUrlConfigWithContext(ctx, &lambda.CreateFunctionUrlConfigInput{
			FunctionName: aws.String(name),
			AuthType:     aws.String(lambda.FunctionUrlAuthTypeNone),
		})
		if err != nil {
			return "", err
		}
		url = aws.StringValue(created.FunctionUrl)
	default:
		return "", err
	}

	_, err = m.Service.AddPermissionWithContext(ctx, &lambda.AddPermissionInput{
		FunctionName:        aws.String(name),
		StatementId:         aws.String(publicURLStatement),
		Action:              aws.String("lambda:InvokeFunctionUrl"),
		Principal:           aws.String("*"),
		FunctionUrlAuthType: aws.String(lambda.FunctionUrlAuthTypeNone),
	})
	if err != nil && !awsutil.IsCode(err, lambda.ErrCodeResourceConflictException) {
		return "", err
	}

	m.Log.Info("Function opened to the web.", zap.String("name", name), zap.String("url", url))
	return url, nil
}

func vpcConfig(c *VPCConfig) *lambda.VpcConfig {
	if c == nil {
		return nil
	}
	return &lambda.VpcConfig{
		SubnetIds:        aws.StringSlice(c.SubnetIDs),
		SecurityGroupIds: aws.StringSlice(c.SecurityGroupIDs),
	}
}

func fileSystemConfigs(c *FileSystemConfig) []*lambda.FileSystemConfig {
	if c == nil {
		return nil
	}
	return []*lambda.FileSystemConfig{{
		Arn:            aws.String(c.AccessPointARN),
		LocalMountPath: aws.String(c.MountPath),
	}}
}

func environment(vars map[string]string) *lambda.Environment {
	if len(vars) == 0 {
		return nil
	}
	return &lambda.Environment{Variables: aws.StringMap(vars)}
}
