package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// ErrCommandFailed occurs when an external command exits unsuccessfully.
type ErrCommandFailed struct {
	Command  string
	ExitCode int
	Stderr   string
	Original error
}

func (e ErrCommandFailed) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("Command %q failed with exit code %d: %s", e.Command, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("Command %q failed. Error: %q", e.Command, e.Original)
}

func (e ErrCommandFailed) Unwrap() error {
	return e.Original
}

// Runner executes external commands. Stdout of the child is copied to Stdout when set.
type Runner struct {
	Stdout io.Writer
	Log    *zap.Logger
}

// Run executes name with args in dir and waits for it to finish.
func (r Runner) Run(ctx context.Context, dir, name string, args ...string) error {
	command := strings.TrimSpace(name + " " + strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if r.Stdout != nil {
		cmd.Stdout = r.Stdout
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if r.Log != nil {
		r.Log.Debug("Running command.", zap.String("command", command), zap.String("dir", dir))
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}

	failed := &ErrCommandFailed{Command: command, ExitCode: -1, Stderr: tail(stderr.String(), 2048), Original: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		failed.ExitCode = exitErr.ExitCode()
	}
	return failed
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
