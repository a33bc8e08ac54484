package awsutil

import (
	"errors"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
)

// Codes that describe a resource in the middle of a state change. Retrying the same
// call later is expected to succeed.
var transientCodes = map[string]struct{}{
	"ThrottlingException":               {},
	"Throttling":                        {},
	"TooManyRequestsException":          {},
	"RequestLimitExceeded":              {},
	"ServiceUnavailable":                {},
	"ServiceException":                  {},
	"InternalFailure":                   {},
	"InternalError":                     {},
	"InternalServerError":               {},
	"IncorrectFileSystemLifeCycleState": {},
	"IncorrectMountTargetState":         {},
	"ResourceNotReadyException":         {},
	"ResourceConflictException":         {},
}

// Code returns the AWS error code carried by err or an empty string.
func Code(err error) string {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		return aerr.Code()
	}
	return ""
}

// IsCode reports whether err carries one of the given AWS error codes.
func IsCode(err error, codes ...string) bool {
	code := Code(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is a provider failure worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	if request.IsErrorThrottle(aerr) || aerr.Code() == request.ErrCodeRequestError {
		return true
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() >= 500 {
		return true
	}

	_, ok := transientCodes[aerr.Code()]
	return ok
}
