package filesystem

import "fmt"

// ErrNotFound occurs when no file system exists for a name.
type ErrNotFound struct {
	Name string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("File system %q not found.", e.Name)
}

// ErrResourceInconsistency occurs when an existing file system is in a state that
// can't be used and won't converge on its own.
type ErrResourceInconsistency struct {
	FileSystemID string
	Reason       string
}

func (e ErrResourceInconsistency) Error() string {
	return fmt.Sprintf("File system %q is inconsistent: %s.", e.FileSystemID, e.Reason)
}
