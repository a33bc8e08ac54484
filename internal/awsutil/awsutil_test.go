package awsutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	err := awserr.New("FileSystemNotFound", "no such file system", nil)

	assert.Equal(t, "FileSystemNotFound", Code(err))
	assert.Equal(t, "FileSystemNotFound", Code(fmt.Errorf("describe: %w", err)))
	assert.Equal(t, "", Code(errors.New("plain")))
	assert.Equal(t, "", Code(nil))
}

func TestIsCode(t *testing.T) {
	err := awserr.New("ResourceNotFoundException", "missing", nil)

	assert.True(t, IsCode(err, "AccessDenied", "ResourceNotFoundException"))
	assert.False(t, IsCode(err, "AccessDenied"))
	assert.False(t, IsCode(errors.New("plain"), "AccessDenied"))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(awserr.New("ThrottlingException", "slow down", nil)))
	assert.True(t, IsTransient(awserr.New("IncorrectMountTargetState", "still creating", nil)))
	assert.True(t, IsTransient(awserr.NewRequestFailure(awserr.New("Oops", "boom", nil), 503, "req-1")))

	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(awserr.New("AccessDeniedException", "no", nil)))
	assert.False(t, IsTransient(awserr.NewRequestFailure(awserr.New("ValidationException", "bad", nil), 400, "req-2")))
	assert.False(t, IsTransient(errors.New("plain")))
}
