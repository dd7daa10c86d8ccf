package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/isomesh/pkg/scene"
)

// DefaultTimeout bounds one evaluation when no WithTimeout option is given.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs past the engine's deadline.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned to a caller whose evaluation finished after a
	// newer one had started on the same engine.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds every evaluation by d. A non-positive d disables the
// engine's own deadline; the caller's context still applies.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// outcome carries one evaluation from its goroutine to the waiting caller.
type outcome struct {
	gen    uint64
	scene  *scene.Scene
	errors []EvalError
	err    error
}

// deadline derives the context an evaluation waits under.
func (e *Engine) deadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeoutCause(ctx, e.timeout, fmt.Errorf("%w after %s", ErrTimeout, e.timeout))
}

// wait blocks until the evaluation on ch finishes or ctx ends. An outcome
// from a generation older than the engine's current one is discarded. The
// interpreter cannot be interrupted, so on cancellation its goroutine runs
// on and its outcome is dropped into the buffered channel.
func (e *Engine) wait(ctx context.Context, ch <-chan outcome) (*scene.Scene, []EvalError, error) {
	select {
	case res := <-ch:
		if res.gen != e.currentGeneration() {
			return nil, nil, ErrSuperseded
		}
		return res.scene, res.errors, res.err
	case <-ctx.Done():
		return nil, nil, context.Cause(ctx)
	}
}

func (e *Engine) currentGeneration() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}
