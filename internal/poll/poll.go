// Package poll waits for eventually-consistent cloud resources to converge.
//
// Every wait is bounded by a maximum number of attempts and a maximum elapsed time,
// backs off exponentially between status checks and stops at the next suspend point
// once its context is canceled.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/rws-framework/rws-lambda/internal/awsutil"
	"github.com/rws-framework/rws-lambda/metrics"
)

// Policy describes how long and how often a resource is polled.
type Policy struct {
	InitialInterval time.Duration `yaml:"interval"`
	MaxInterval     time.Duration `yaml:"maxInterval"`
	Multiplier      float64       `yaml:"multiplier"`
	MaxAttempts     uint          `yaml:"maxAttempts"`
	MaxElapsed      time.Duration `yaml:"timeout"`
}

// DefaultPolicy starts at the 3s interval resources usually need and gives up after
// 15 minutes.
func DefaultPolicy() Policy {
	return Policy{
		InitialInterval: 3 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      1.5,
		MaxAttempts:     120,
		MaxElapsed:      15 * time.Minute,
	}
}

// Fixed returns a policy checking every interval until timeout elapses.
func Fixed(interval, timeout time.Duration) Policy {
	attempts := uint(1)
	if interval > 0 {
		attempts = uint(timeout/interval) + 1
	}
	return Policy{
		InitialInterval: interval,
		MaxInterval:     interval,
		Multiplier:      1,
		MaxAttempts:     attempts,
		MaxElapsed:      timeout,
	}
}

func (p Policy) withDefaults() Policy {
	def := DefaultPolicy()
	if p.InitialInterval <= 0 {
		p.InitialInterval = def.InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = p.InitialInterval
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.MaxElapsed <= 0 {
		p.MaxElapsed = def.MaxElapsed
	}
	return p
}

// Condition reports whether the awaited state has been reached. Errors classified as
// transient by awsutil.IsTransient are retried, any other error stops the wait.
type Condition func(ctx context.Context) (bool, error)

// ErrTimeout occurs when a resource did not converge within the policy bounds.
type ErrTimeout struct {
	Resource string
	Attempts uint
	Last     error
}

func (e ErrTimeout) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("Timed out waiting for %s after %d attempts. Last error: %q", e.Resource, e.Attempts, e.Last)
	}
	return fmt.Sprintf("Timed out waiting for %s after %d attempts.", e.Resource, e.Attempts)
}

func (e ErrTimeout) Unwrap() error {
	return e.Last
}

var errPending = errors.New("resource not ready")

// Waiter runs bounded polls.
type Waiter struct {
	Policy Policy
	Log    *zap.Logger
}

// Until polls cond until it reports true. kind labels the resource type in metrics,
// id identifies the resource in logs and errors.
func (w Waiter) Until(ctx context.Context, kind, id string, cond Condition) error {
	return w.UntilWith(ctx, w.Policy, kind, id, cond)
}

// UntilWith is Until with an explicit policy.
func (w Waiter) UntilWith(ctx context.Context, policy Policy, kind, id string, cond Condition) error {
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}
	policy = policy.withDefaults()
	resource := kind + " " + id

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval
	b.Multiplier = policy.Multiplier
	b.RandomizationFactor = 0

	var attempts uint
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		done, err := cond(ctx)
		switch {
		case err != nil && awsutil.IsTransient(err):
			metrics.PollAttempts.WithLabelValues(kind, "retry").Inc()
			log.Debug("Transient error while waiting.", zap.String("resource", resource), zap.Uint("attempt", attempts), zap.Error(err))
			return struct{}{}, err
		case err != nil:
			metrics.PollAttempts.WithLabelValues(kind, "failed").Inc()
			return struct{}{}, backoff.Permanent(err)
		case !done:
			metrics.PollAttempts.WithLabelValues(kind, "pending").Inc()
			log.Debug("Waiting for resource.", zap.String("resource", resource), zap.Uint("attempt", attempts))
			return struct{}{}, errPending
		}
		metrics.PollAttempts.WithLabelValues(kind, "ready").Inc()
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(policy.MaxAttempts),
		backoff.WithMaxElapsedTime(policy.MaxElapsed),
	)
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Unwrap()
	}
	if errors.Is(err, errPending) {
		return &ErrTimeout{Resource: resource, Attempts: attempts}
	}
	if awsutil.IsTransient(err) {
		return &ErrTimeout{Resource: resource, Attempts: attempts, Last: err}
	}
	return err
}
