package function

import (
	"fmt"
)

// ErrFunctionNotFound occurs when function doesn't exist.
type ErrFunctionNotFound struct {
	Name string
}

func (e ErrFunctionNotFound) Error() string {
	return fmt.Sprintf("Function %q not found.", e.Name)
}

// ErrFunctionValidation occurs when deploy input doesn't validate.
type ErrFunctionValidation struct {
	Message string
}

func (e ErrFunctionValidation) Error() string {
	return fmt.Sprintf("Function doesn't validate. Validation error: %q", e.Message)
}

// ErrFunctionDeployFailed occurs when function ended in a failed state after create
// or update.
type ErrFunctionDeployFailed struct {
	Name   string
	Reason string
}

func (e ErrFunctionDeployFailed) Error() string {
	return fmt.Sprintf("Function %q failed to deploy: %s", e.Name, e.Reason)
}

// ErrFunctionCallFailed occurs when function call failed because of provider error.
type ErrFunctionCallFailed struct {
	Original error
}

func (e ErrFunctionCallFailed) Error() string {
	return fmt.Sprintf("Function call failed. Error: %q", e.Original)
}

func (e ErrFunctionCallFailed) Unwrap() error {
	return e.Original
}

// ErrFunctionAccessDenied occurs when credentials don't allow calling a function.
type ErrFunctionAccessDenied struct {
	Original error
}

func (e ErrFunctionAccessDenied) Error() string {
	return fmt.Sprintf("Function access denied. Error: %q", e.Original)
}

func (e ErrFunctionAccessDenied) Unwrap() error {
	return e.Original
}

// ErrFunctionProviderError occurs when function call failed because of provider error.
type ErrFunctionProviderError struct {
	Original error
}

func (e ErrFunctionProviderError) Error() string {
	return fmt.Sprintf("Function call failed because of provider error. Error: %q", e.Original)
}

func (e ErrFunctionProviderError) Unwrap() error {
	return e.Original
}

// ErrFunctionError occurs when function call failed because of function error.
type ErrFunctionError struct {
	Name    string
	Message string
}

func (e ErrFunctionError) Error() string {
	return fmt.Sprintf("Function %q call failed because of runtime error: %s", e.Name, e.Message)
}
