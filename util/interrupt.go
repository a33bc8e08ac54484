package util

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// InterruptGuard turns SIGINT and SIGTERM into cancellation of a command context, so
// long waits on cloud resources stop at their next status check.
type InterruptGuard struct {
	sync.Mutex
	ShuttingDown chan struct{}

	cancel  context.CancelFunc
	signals chan os.Signal
}

// NewInterruptGuard creates a guard and the context it cancels.
func NewInterruptGuard(parent context.Context) (*InterruptGuard, context.Context) {
	ctx, cancel := context.WithCancel(parent)
	g := &InterruptGuard{
		ShuttingDown: make(chan struct{}),
		cancel:       cancel,
		signals:      make(chan os.Signal, 1),
	}

	signal.Notify(g.signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-g.signals:
			g.InitiateShutdown()
		case <-g.ShuttingDown:
		}
	}()

	return g, ctx
}

// InitiateShutdown cancels the guarded context.
func (g *InterruptGuard) InitiateShutdown() {
	g.Lock()
	defer g.Unlock()

	select {
	case <-g.ShuttingDown:
		// already closed
	default:
		close(g.ShuttingDown)
		g.cancel()
	}
}

// Interrupted reports whether the guard has fired.
func (g *InterruptGuard) Interrupted() bool {
	select {
	case <-g.ShuttingDown:
		return true
	default:
		return false
	}
}

// Stop releases the signal handlers and cancels the context.
func (g *InterruptGuard) Stop() {
	signal.Stop(g.signals)
	g.InitiateShutdown()
}
