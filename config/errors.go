package config

import "fmt"

// ErrConfigInvalid occurs when the configuration cannot be loaded or doesn't validate.
type ErrConfigInvalid struct {
	Message string
}

func (e ErrConfigInvalid) Error() string {
	return fmt.Sprintf("Configuration doesn't validate. Validation error: %q", e.Message)
}
