package command

import "fmt"

// ErrUsage occurs when a sub-command can't be parsed.
type ErrUsage struct {
	Message string
}

func (e ErrUsage) Error() string {
	return fmt.Sprintf("Invalid command: %s.", e.Message)
}

// ErrPayloadNotFound occurs when an invocation payload file doesn't exist.
type ErrPayloadNotFound struct {
	Name string
	Path string
}

func (e ErrPayloadNotFound) Error() string {
	return fmt.Sprintf("Payload %q not found at %q.", e.Name, e.Path)
}

// ErrInvalidPayload occurs when an invocation payload isn't valid JSON.
type ErrInvalidPayload struct {
	Path string
}

func (e ErrInvalidPayload) Error() string {
	return fmt.Sprintf("Payload %q is not valid JSON.", e.Path)
}

// ErrInvocationFailed occurs when an invoked function reports success=false.
type ErrInvocationFailed struct {
	Name    string
	Message string
}

func (e ErrInvocationFailed) Error() string {
	return fmt.Sprintf("Function %q reported failure: %s", e.Name, e.Message)
}

// ErrCommandFailed wraps the error a command stopped with and the stage it reached.
type ErrCommandFailed struct {
	Command  string
	Stage    Stage
	Original error
}

func (e ErrCommandFailed) Error() string {
	return fmt.Sprintf("Command %q failed at stage %s. Error: %s", e.Command, e.Stage, e.Original)
}

func (e ErrCommandFailed) Unwrap() error {
	return e.Original
}
