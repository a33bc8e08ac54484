package shell

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRun(t *testing.T) {
	var out bytes.Buffer
	runner := Runner{Stdout: &out, Log: zap.NewNop()}

	err := runner.Run(context.Background(), t.TempDir(), "sh", "-c", "echo hello")

	assert.Nil(t, err)
	assert.Equal(t, "hello\n", out.String())
}

func TestRun_Failure(t *testing.T) {
	runner := Runner{Log: zap.NewNop()}

	err := runner.Run(context.Background(), t.TempDir(), "sh", "-c", "echo broken >&2; exit 3")

	failed := &ErrCommandFailed{}
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, 3, failed.ExitCode)
	assert.Equal(t, "broken", failed.Stderr)
	assert.Equal(t, `sh -c echo broken >&2; exit 3`, failed.Command)
}

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", tail("  abc\n", 10))
	assert.Equal(t, "def", tail("abcdef", 3))
}
