package packaging

import "fmt"

// ErrSourceNotFound occurs when the directory to package doesn't exist.
type ErrSourceNotFound struct {
	Path     string
	Original error
}

func (e ErrSourceNotFound) Error() string {
	return fmt.Sprintf("Source directory %q not found.", e.Path)
}

// ErrArchiveFailed occurs when an artifact can't be written.
type ErrArchiveFailed struct {
	Path     string
	Reason   string
	Original error
}

func (e ErrArchiveFailed) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("Creating archive %q failed: %s.", e.Path, e.Reason)
	}
	return fmt.Sprintf("Creating archive %q failed. Error: %q", e.Path, e.Original)
}

func (e ErrArchiveFailed) Unwrap() error {
	return e.Original
}
