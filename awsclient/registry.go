// Package awsclient builds and caches the AWS service clients used by one command
// run. All clients share a single session scoped to one region and credential pair.
package awsclient

import (
	"errors"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/efs"
	"github.com/aws/aws-sdk-go/service/iam"
	"github.com/aws/aws-sdk-go/service/lambda"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rws-framework/rws-lambda/metrics"
)

// Config selects the region and credentials of the registry's session.
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// Endpoint overrides the service endpoint, e.g. for a local AWS emulator.
	Endpoint string
}

// MarshalLogObject is a part of zapcore.ObjectMarshaler interface.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("region", c.Region)
	if c.AccessKeyID != "" {
		enc.AddString("awsAccessKeyId", "*****")
	}
	if c.SecretAccessKey != "" {
		enc.AddString("awsSecretAccessKey", "*****")
	}
	if c.SessionToken != "" {
		enc.AddString("awsSessionToken", "*****")
	}
	return nil
}

// Registry lazily constructs per-service clients and caches them.
type Registry struct {
	session *session.Session
	region  string
	log     *zap.Logger

	mu         sync.Mutex
	lambda     *lambda.Lambda
	efs        *efs.EFS
	ec2        *ec2.EC2
	iam        *iam.IAM
	cloudwatch *cloudwatch.CloudWatch
	logs       *cloudwatchlogs.CloudWatchLogs
	s3         *s3.S3
	uploader   *s3manager.Uploader
}

// New creates a session for cfg. Static credentials are used when both keys are set,
// otherwise the default credential chain applies.
func New(cfg Config, log *zap.Logger) (*Registry, error) {
	if cfg.Region == "" {
		return nil, errors.New("AWS region is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	awsConfig := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsConfig = awsConfig.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken))
	}
	if cfg.Endpoint != "" {
		awsConfig = awsConfig.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, err
	}
	sess.Handlers.Complete.PushBackNamed(request.NamedHandler{
		Name: "rws.observeCall",
		Fn:   observeCall(log),
	})

	log.Debug("AWS session created.", zap.Object("aws", cfg))

	return &Registry{session: sess, region: cfg.Region, log: log}, nil
}

func observeCall(log *zap.Logger) func(*request.Request) {
	return func(r *request.Request) {
		outcome := "ok"
		if r.Error != nil {
			outcome = "error"
		}
		operation := ""
		if r.Operation != nil {
			operation = r.Operation.Name
		}
		elapsed := time.Since(r.Time)

		metrics.CloudCallDuration.WithLabelValues(r.ClientInfo.ServiceName, operation, outcome).Observe(elapsed.Seconds())
		log.Debug("AWS call completed.",
			zap.String("service", r.ClientInfo.ServiceName),
			zap.String("operation", operation),
			zap.Duration("duration", elapsed),
			zap.Int("retries", r.RetryCount),
			zap.Error(r.Error))
	}
}

// Region returns the region all clients are scoped to.
func (r *Registry) Region() string {
	return r.region
}

// Session returns the shared session.
func (r *Registry) Session() *session.Session {
	return r.session
}

// Lambda returns the compute-function client.
func (r *Registry) Lambda() *lambda.Lambda {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lambda == nil {
		r.lambda = lambda.New(r.session)
	}
	return r.lambda
}

// EFS returns the file-system client.
func (r *Registry) EFS() *efs.EFS {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.efs == nil {
		r.efs = efs.New(r.session)
	}
	return r.efs
}

// EC2 returns the network client.
func (r *Registry) EC2() *ec2.EC2 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ec2 == nil {
		r.ec2 = ec2.New(r.session)
	}
	return r.ec2
}

// IAM returns the identity client.
func (r *Registry) IAM() *iam.IAM {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.iam == nil {
		r.iam = iam.New(r.session)
	}
	return r.iam
}

// CloudWatch returns the metrics client.
func (r *Registry) CloudWatch() *cloudwatch.CloudWatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cloudwatch == nil {
		r.cloudwatch = cloudwatch.New(r.session)
	}
	return r.cloudwatch
}

// CloudWatchLogs returns the logs client.
func (r *Registry) CloudWatchLogs() *cloudwatchlogs.CloudWatchLogs {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.logs == nil {
		r.logs = cloudwatchlogs.New(r.session)
	}
	return r.logs
}

// S3 returns the object storage client.
func (r *Registry) S3() *s3.S3 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.s3 == nil {
		r.s3 = s3.New(r.session)
	}
	return r.s3
}

// S3Uploader returns a multipart uploader backed by the S3 client.
func (r *Registry) S3Uploader() *s3manager.Uploader {
	client := r.S3()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.uploader == nil {
		r.uploader = s3manager.NewUploaderWithClient(client)
	}
	return r.uploader
}
