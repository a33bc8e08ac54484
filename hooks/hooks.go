// Package hooks runs per-function lifecycle hooks around packaging and deployment.
package hooks

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Event is a point in a function's deployment where hooks run.
type Event string

// Lifecycle events in the order they fire.
const (
	PreArchive  Event = "preArchive"
	PostArchive Event = "postArchive"
	PreDeploy   Event = "preDeploy"
	PostDeploy  Event = "postDeploy"
)

// Params is passed to every hook.
type Params struct {
	Target      string
	FunctionDir string
	ProjectDir  string
	SubnetID    string
}

// Hook is a lifecycle callback.
type Hook func(ctx context.Context, params Params) error

// Set holds the hooks of one function. Nil hooks are skipped.
type Set struct {
	PreArchive  Hook
	PostArchive Hook
	PreDeploy   Hook
	PostDeploy  Hook
}

func (s Set) hook(event Event) Hook {
	switch event {
	case PreArchive:
		return s.PreArchive
	case PostArchive:
		return s.PostArchive
	case PreDeploy:
		return s.PreDeploy
	case PostDeploy:
		return s.PostDeploy
	}
	return nil
}

// Registry maps function targets to their hooks.
type Registry struct {
	Log *zap.Logger

	mu   sync.RWMutex
	sets map[string]Set
}

// NewRegistry returns an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{Log: log, sets: map[string]Set{}}
}

// Register sets the hooks of target, replacing previously registered ones.
func (r *Registry) Register(target string, set Set) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sets == nil {
		r.sets = map[string]Set{}
	}
	r.sets[target] = set
}

// Dispatch runs the hook registered for target and event. Targets without a hook for
// the event are skipped.
func (r *Registry) Dispatch(ctx context.Context, event Event, target string, params Params) error {
	r.mu.RLock()
	set, ok := r.sets[target]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	hook := set.hook(event)
	if hook == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if r.Log != nil {
		r.Log.Debug("Running lifecycle hook.", zap.String("target", target), zap.String("event", string(event)))
	}
	if err := hook(ctx, params); err != nil {
		return &ErrHookFailed{Target: target, Event: event, Original: err}
	}
	return nil
}

// Default returns a registry with the built-in hooks.
func Default(log *zap.Logger) *Registry {
	r := NewRegistry(log)
	r.Register(ArtilleryTarget, Artillery(log))
	return r
}
