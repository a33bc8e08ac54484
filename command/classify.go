package command

import (
	"context"
	"errors"

	"github.com/rws-framework/rws-lambda/config"
	"github.com/rws-framework/rws-lambda/filesystem"
	"github.com/rws-framework/rws-lambda/function"
	"github.com/rws-framework/rws-lambda/hooks"
	"github.com/rws-framework/rws-lambda/internal/awsutil"
	"github.com/rws-framework/rws-lambda/internal/poll"
	"github.com/rws-framework/rws-lambda/packaging"
	"github.com/rws-framework/rws-lambda/permission"
)

// Kind is the class of a command failure.
type Kind string

// Failure kinds.
const (
	KindOK                    Kind = "ok"
	KindUsage                 Kind = "usage"
	KindCanceled              Kind = "canceled"
	KindPermissionDenied      Kind = "permission_denied"
	KindResourceInconsistency Kind = "resource_inconsistency"
	KindTimeout               Kind = "timeout"
	KindNotFound              Kind = "not_found"
	KindHookFailure           Kind = "hook_failure"
	KindTransient             Kind = "transient"
	KindInternal              Kind = "internal"
)

// Process exit codes by kind.
var exitCodes = map[Kind]int{
	KindOK:                    0,
	KindInternal:              1,
	KindTransient:             1,
	KindPermissionDenied:      2,
	KindNotFound:              3,
	KindHookFailure:           4,
	KindResourceInconsistency: 5,
	KindTimeout:               6,
	KindUsage:                 64,
	KindCanceled:              130,
}

// Classify maps an error returned by Run to its kind.
func Classify(err error) Kind {
	if err == nil {
		return KindOK
	}

	var (
		usage        *ErrUsage
		badConfig    *config.ErrConfigInvalid
		hookFailed   *hooks.ErrHookFailed
		denied       *permission.ErrPermissionDenied
		accessDenied *function.ErrFunctionAccessDenied
		inconsistent *filesystem.ErrResourceInconsistency
		timeout      *poll.ErrTimeout
		fnNotFound   *function.ErrFunctionNotFound
		fsNotFound   *filesystem.ErrNotFound
		srcNotFound  *packaging.ErrSourceNotFound
		noPayload    *ErrPayloadNotFound
	)
	switch {
	case errors.As(err, &usage), errors.As(err, &badConfig):
		return KindUsage
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.As(err, &hookFailed):
		return KindHookFailure
	case errors.As(err, &denied), errors.As(err, &accessDenied):
		return KindPermissionDenied
	case errors.As(err, &inconsistent):
		return KindResourceInconsistency
	case errors.As(err, &timeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &fnNotFound), errors.As(err, &fsNotFound), errors.As(err, &srcNotFound), errors.As(err, &noPayload):
		return KindNotFound
	case awsutil.IsTransient(err):
		return KindTransient
	}
	return KindInternal
}

// ExitCode returns the process exit code for an error returned by Run.
func ExitCode(err error) int {
	return exitCodes[Classify(err)]
}
