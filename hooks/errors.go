package hooks

import "fmt"

// ErrHookFailed occurs when a lifecycle hook returns an error.
type ErrHookFailed struct {
	Target   string
	Event    Event
	Original error
}

func (e ErrHookFailed) Error() string {
	return fmt.Sprintf("Lifecycle hook %s of %q failed. Error: %q", e.Event, e.Target, e.Original)
}

func (e ErrHookFailed) Unwrap() error {
	return e.Original
}
