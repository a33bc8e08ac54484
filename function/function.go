package function

import (
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/lambda"
	"go.uber.org/zap/zapcore"

	rwszap "github.com/rws-framework/rws-lambda/internal/zap"
)

// Prefix is prepended to every deployed function name.
const Prefix = "RWS-"

// Name returns the deployed name of a function target. Names that already carry the
// prefix are returned unchanged.
func Name(target string) string {
	if strings.HasPrefix(target, Prefix) {
		return target
	}
	return Prefix + target
}

// Target strips the deployment prefix from a function name.
func Target(name string) string {
	return strings.TrimPrefix(name, Prefix)
}

// VPCConfig places a function in a VPC.
type VPCConfig struct {
	SubnetIDs        []string
	SecurityGroupIDs []string
}

// FileSystemConfig mounts an EFS access point into a function.
type FileSystemConfig struct {
	AccessPointARN string
	MountPath      string
}

// Function represents a function deployed on AWS Lambda.
type Function struct {
	Name             string
	ARN              string
	Runtime          string
	Handler          string
	State            string
	StateReason      string
	LastUpdateStatus string
	VPCConfig        *VPCConfig
	FileSystemConfig *FileSystemConfig
}

// MarshalLogObject is a part of zapcore.ObjectMarshaler interface
func (f Function) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("name", f.Name)
	enc.AddString("arn", f.ARN)
	enc.AddString("runtime", f.Runtime)
	enc.AddString("handler", f.Handler)
	enc.AddString("state", f.State)
	enc.AddString("lastUpdateStatus", f.LastUpdateStatus)
	if f.VPCConfig != nil {
		enc.AddArray("subnets", rwszap.Strings(f.VPCConfig.SubnetIDs))
	}
	if f.FileSystemConfig != nil {
		enc.AddString("accessPointArn", f.FileSystemConfig.AccessPointARN)
		enc.AddString("mountPath", f.FileSystemConfig.MountPath)
	}
	return nil
}

// Active reports whether the function finished creation.
func Active(f *Function) bool {
	return f.State == lambda.StateActive
}

// Updated reports whether the last configuration or code update completed.
func Updated(f *Function) bool {
	return f.LastUpdateStatus == "" || f.LastUpdateStatus == lambda.LastUpdateStatusSuccessful
}

// Condition reports whether a function reached an awaited state.
type Condition func(f *Function) bool

// Summary is a deployed function as returned by List.
type Summary struct {
	ARN          string
	Name         string
	Runtime      string
	LastModified string
	MemorySize   int64
}

// DeployInput describes a function to create or update.
type DeployInput struct {
	Name         string `validate:"required"`
	ArtifactPath string `validate:"required"`
	Role         string `validate:"required"`
	Runtime      string `validate:"required"`
	Handler      string `validate:"required"`
	MemorySize   int64  `validate:"min=128,max=10240"`
	Timeout      int64  `validate:"min=1,max=900"`
	VPCConfig    *VPCConfig
	FileSystem   *FileSystemConfig
	Environment  map[string]string
}

// InvocationType selects how a function is invoked.
type InvocationType string

// Supported invocation types.
const (
	RequestResponse = InvocationType(lambda.InvocationTypeRequestResponse)
	Event           = InvocationType(lambda.InvocationTypeEvent)
	DryRun          = InvocationType(lambda.InvocationTypeDryRun)
)

// Invocation is the result of a function invocation.
type Invocation struct {
	StatusCode      int64
	Payload         []byte
	FunctionError   string
	Log             string
	ExecutedVersion string
}

// MarshalLogObject is a part of zapcore.ObjectMarshaler interface
func (i Invocation) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt64("statusCode", i.StatusCode)
	enc.AddInt("payloadSize", len(i.Payload))
	if i.FunctionError != "" {
		enc.AddString("functionError", i.FunctionError)
	}
	if i.ExecutedVersion != "" {
		enc.AddString("executedVersion", i.ExecutedVersion)
	}
	return nil
}

func fromConfiguration(c *lambda.FunctionConfiguration) *Function {
	if c == nil {
		return nil
	}
	fn := &Function{
		Name:             aws.StringValue(c.FunctionName),
		ARN:              aws.StringValue(c.FunctionArn),
		Runtime:          aws.StringValue(c.Runtime),
		Handler:          aws.StringValue(c.Handler),
		State:            aws.StringValue(c.State),
		StateReason:      aws.StringValue(c.StateReason),
		LastUpdateStatus: aws.StringValue(c.LastUpdateStatus),
	}
	if c.LastUpdateStatus != nil && aws.StringValue(c.LastUpdateStatus) == lambda.LastUpdateStatusFailed {
		fn.StateReason = aws.StringValue(c.LastUpdateStatusReason)
	}
	if c.VpcConfig != nil && len(c.VpcConfig.SubnetIds) > 0 {
		fn.VPCConfig = &VPCConfig{
			SubnetIDs:        aws.StringValueSlice(c.VpcConfig.SubnetIds),
			SecurityGroupIDs: aws.StringValueSlice(c.VpcConfig.SecurityGroupIds),
		}
	}
	if len(c.FileSystemConfigs) > 0 {
		fn.FileSystemConfig = &FileSystemConfig{
			AccessPointARN: aws.StringValue(c.FileSystemConfigs[0].Arn),
			MountPath:      aws.StringValue(c.FileSystemConfigs[0].LocalMountPath),
		}
	}
	return fn
}
