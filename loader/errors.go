package loader

import "fmt"

// ErrInvalidRequest occurs when the loader payload is incomplete.
type ErrInvalidRequest struct {
	Message string
}

func (e ErrInvalidRequest) Error() string {
	return fmt.Sprintf("Loader request doesn't validate. Validation error: %q", e.Message)
}

// ErrUnsafeEntry occurs when a bundle contains a path escaping the target directory.
type ErrUnsafeEntry struct {
	Name string
}

func (e ErrUnsafeEntry) Error() string {
	return fmt.Sprintf("Bundle entry %q escapes the target directory.", e.Name)
}

// ErrUploadFailed occurs when a bundle can't be stored in the modules bucket.
type ErrUploadFailed struct {
	Key      string
	Message  string
	Original error
}

func (e ErrUploadFailed) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Uploading %q failed: %s.", e.Key, e.Message)
	}
	return fmt.Sprintf("Uploading %q failed. Error: %q", e.Key, e.Original)
}

func (e ErrUploadFailed) Unwrap() error {
	return e.Original
}

// ErrLoadFailed occurs when the loader function reports an unsuccessful load.
type ErrLoadFailed struct {
	Message string
}

func (e ErrLoadFailed) Error() string {
	return fmt.Sprintf("Loading modules onto the shared file system failed: %s", e.Message)
}
