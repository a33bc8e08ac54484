package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func fastPolicy(attempts uint) Policy {
	return Policy{
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
		MaxAttempts:     attempts,
		MaxElapsed:      5 * time.Second,
	}
}

func TestUntil_ReadyAfterPending(t *testing.T) {
	w := Waiter{Policy: fastPolicy(10), Log: zap.NewNop()}
	calls := 0

	err := w.Until(context.Background(), "filesystem", "fs-1", func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})

	assert.Nil(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntil_TimeoutWhenNeverReady(t *testing.T) {
	w := Waiter{Policy: fastPolicy(4), Log: zap.NewNop()}
	calls := 0

	err := w.Until(context.Background(), "accesspoint", "fsap-1", func(context.Context) (bool, error) {
		calls++
		return false, nil
	})

	timeout := &ErrTimeout{}
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, "accesspoint fsap-1", timeout.Resource)
	assert.Equal(t, uint(4), timeout.Attempts)
	assert.Equal(t, 4, calls)
}

func TestUntil_RetriesTransientErrors(t *testing.T) {
	w := Waiter{Policy: fastPolicy(5), Log: zap.NewNop()}
	calls := 0

	err := w.Until(context.Background(), "mounttarget", "fs-1", func(context.Context) (bool, error) {
		calls++
		if calls < 3 {
			return false, awserr.New("ThrottlingException", "slow down", nil)
		}
		return true, nil
	})

	assert.Nil(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntil_ExhaustedTransientErrorIsTimeout(t *testing.T) {
	w := Waiter{Policy: fastPolicy(2), Log: zap.NewNop()}
	throttled := awserr.New("ThrottlingException", "slow down", nil)

	err := w.Until(context.Background(), "filesystem", "fs-1", func(context.Context) (bool, error) {
		return false, throttled
	})

	timeout := &ErrTimeout{}
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, throttled, timeout.Last)
}

func TestUntil_PermanentErrorStopsImmediately(t *testing.T) {
	w := Waiter{Policy: fastPolicy(10), Log: zap.NewNop()}
	denied := awserr.New("AccessDeniedException", "no", nil)
	calls := 0

	err := w.Until(context.Background(), "filesystem", "fs-1", func(context.Context) (bool, error) {
		calls++
		return false, denied
	})

	assert.Equal(t, denied, err)
	assert.Equal(t, 1, calls)
}

func TestUntil_Canceled(t *testing.T) {
	w := Waiter{Policy: Policy{InitialInterval: time.Hour, MaxAttempts: 10, MaxElapsed: 2 * time.Hour}, Log: zap.NewNop()}
	ctx, cancel := context.WithCancel(context.Background())

	err := w.Until(ctx, "filesystem", "fs-1", func(context.Context) (bool, error) {
		cancel()
		return false, nil
	})

	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFixed(t *testing.T) {
	p := Fixed(time.Second, 10*time.Second)

	assert.Equal(t, uint(11), p.MaxAttempts)
	assert.Equal(t, time.Second, p.InitialInterval)
	assert.Equal(t, time.Second, p.MaxInterval)
	assert.Equal(t, 10*time.Second, p.MaxElapsed)
}
