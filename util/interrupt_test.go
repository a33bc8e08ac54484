package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterruptGuard_InitiateShutdownCancelsContext(t *testing.T) {
	guard, ctx := NewInterruptGuard(context.Background())
	defer guard.Stop()

	assert.False(t, guard.Interrupted())
	guard.InitiateShutdown()
	guard.InitiateShutdown()

	<-ctx.Done()
	assert.True(t, guard.Interrupted())
	assert.Equal(t, context.Canceled, ctx.Err())
}

func TestInterruptGuard_ParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	guard, ctx := NewInterruptGuard(parent)
	defer guard.Stop()

	cancel()

	<-ctx.Done()
	assert.False(t, guard.Interrupted())
}
