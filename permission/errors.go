package permission

import (
	"fmt"
	"strings"
)

// ErrPermissionDenied occurs when the lambda role is not allowed to perform required actions.
type ErrPermissionDenied struct {
	Actions  []string
	Original error
}

func (e ErrPermissionDenied) Error() string {
	if len(e.Actions) == 0 && e.Original != nil {
		return fmt.Sprintf("Permission check failed. Error: %q", e.Original)
	}
	return fmt.Sprintf("Lambda role is missing permissions: %s", strings.Join(e.Actions, ", "))
}

func (e ErrPermissionDenied) Unwrap() error {
	return e.Original
}
