package awsclient

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newRegistry(t *testing.T) *Registry {
	r, err := New(Config{Region: "eu-west-1", AccessKeyID: "AKIA", SecretAccessKey: "secret"}, zap.NewNop())
	require.Nil(t, err)
	return r
}

func TestNew_MissingRegion(t *testing.T) {
	_, err := New(Config{}, zap.NewNop())

	assert.EqualError(t, err, "AWS region is required")
}

func TestNew_StaticCredentials(t *testing.T) {
	r := newRegistry(t)

	creds, err := r.Session().Config.Credentials.Get()

	require.Nil(t, err)
	assert.Equal(t, "AKIA", creds.AccessKeyID)
	assert.Equal(t, "eu-west-1", r.Region())
}

func TestRegistry_ClientsAreCached(t *testing.T) {
	r := newRegistry(t)

	assert.Same(t, r.Lambda(), r.Lambda())
	assert.Same(t, r.EFS(), r.EFS())
	assert.Same(t, r.EC2(), r.EC2())
	assert.Same(t, r.IAM(), r.IAM())
	assert.Same(t, r.CloudWatch(), r.CloudWatch())
	assert.Same(t, r.CloudWatchLogs(), r.CloudWatchLogs())
	assert.Same(t, r.S3(), r.S3())
	assert.Same(t, r.S3Uploader(), r.S3Uploader())
	assert.Equal(t, "eu-west-1", *r.Lambda().Config.Region)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := newRegistry(t)
	var wg sync.WaitGroup
	clients := make(chan interface{}, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clients <- r.EFS()
		}()
	}
	wg.Wait()
	close(clients)

	first := r.EFS()
	for c := range clients {
		assert.Same(t, first, c)
	}
}

func TestConfig_MarshalLogObject(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()

	Config{Region: "eu-west-1", AccessKeyID: "AKIA", SecretAccessKey: "secret"}.MarshalLogObject(enc)

	assert.Equal(t, "eu-west-1", enc.Fields["region"])
	assert.Equal(t, "*****", enc.Fields["awsAccessKeyId"])
	assert.Equal(t, "*****", enc.Fields["awsSecretAccessKey"])
	assert.NotContains(t, enc.Fields, "awsSessionToken")
}
