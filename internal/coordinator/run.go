package coordinator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/matkrin/lintgutter/internal/diagnostic"
	"github.com/matkrin/lintgutter/internal/linter"
)

// Run is one invocation of the linter against one document snapshot.
type Run struct {
	Generation uint64

	snapshot  linter.Snapshot
	ctx       context.Context
	cancel    context.CancelFunc
	cancelled atomic.Bool
	timer     *time.Timer // guarded by Coordinator.mu

	diagnostics []diagnostic.Diagnostic
	err         error
}

func newRun(parent context.Context, snapshot linter.Snapshot) *Run {
	ctx, cancel := context.WithCancel(parent)
	return &Run{
		Generation: snapshot.Generation,
		snapshot:   snapshot,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// cancelRun marks the run superseded and kills its linter process. Callers
// hold Coordinator.mu.
func (r *Run) cancelRun() {
	if !r.cancelled.CompareAndSwap(false, true) {
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.cancel()
}

func (r *Run) Cancelled() bool {
	return r.cancelled.Load()
}

func (r *Run) finish(diagnostics []diagnostic.Diagnostic, err error) {
	r.diagnostics = diagnostics
	r.err = err
}

func (r *Run) completion() Completion {
	return Completion{
		URI:         r.snapshot.URI,
		Generation:  r.Generation,
		Diagnostics: r.diagnostics,
		Projection:  diagnostic.Project(r.diagnostics),
		Err:         r.err,
	}
}
