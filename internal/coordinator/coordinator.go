// Package coordinator runs the external linter in the background whenever a
// document is loaded, saved or changed, and hands finished results back to
// the UI execution context. Each document has at most one current run; a new
// trigger supersedes the previous one and its result is never published.
package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/matkrin/lintgutter/internal/diagnostic"
	"github.com/matkrin/lintgutter/internal/language"
	"github.com/matkrin/lintgutter/internal/linter"
	"github.com/matkrin/lintgutter/internal/mainloop"
)

var (
	ErrNoRunner     = errors.New("coordinator needs a linter runner")
	ErrNoDispatcher = errors.New("coordinator needs a UI dispatcher")
)

// Document is what the host editor exposes about a buffer.
type Document interface {
	URI() string
	Text() string
	Encoding() string
	Language() string
}

type Runner interface {
	Run(ctx context.Context, snapshot linter.Snapshot) ([]byte, error)
}

// Completion is delivered on the UI execution context for every run that
// was still current when it finished. Err is set for failed runs, which
// carry no diagnostics.
type Completion struct {
	URI         string
	Generation  uint64
	Diagnostics []diagnostic.Diagnostic
	Projection  map[int]diagnostic.Diagnostic
	Err         error
}

type Options struct {
	Language   string
	Runner     Runner
	Dispatcher mainloop.Dispatcher
	OnComplete func(Completion)
	Debounce   time.Duration
	Logger     *slog.Logger
	Context    context.Context
}

type Coordinator struct {
	language   string
	runner     Runner
	dispatcher mainloop.Dispatcher
	onComplete func(Completion)
	debounce   time.Duration
	logger     *slog.Logger
	ctx        context.Context

	generation atomic.Uint64

	mu        sync.Mutex
	documents map[string]*documentState
}

type documentState struct {
	current *Run
}

func New(options Options) (*Coordinator, error) {
	if options.Runner == nil {
		return nil, ErrNoRunner
	}
	if options.Dispatcher == nil {
		return nil, ErrNoDispatcher
	}
	onComplete := options.OnComplete
	if onComplete == nil {
		onComplete = func(Completion) {}
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx := options.Context
	if ctx == nil {
		ctx = context.Background()
	}

	return &Coordinator{
		language:   options.Language,
		runner:     options.Runner,
		dispatcher: options.Dispatcher,
		onComplete: onComplete,
		debounce:   options.Debounce,
		logger:     logger,
		ctx:        ctx,
		documents:  make(map[string]*documentState),
	}, nil
}

// Trigger starts a new analysis of doc, superseding any run still in flight
// for it. It returns false when doc is nil or not written in the analyzed
// language; a run still in flight for such a document is cancelled and the
// document forgotten, so its result is never delivered.
func (c *Coordinator) Trigger(doc Document) bool {
	if doc == nil {
		return false
	}
	if !language.Matches(doc.Language(), c.language) {
		c.logger.Debug("Document not applicable", "uri", doc.URI(), "language", doc.Language())
		c.Close(doc.URI())
		return false
	}

	snapshot := linter.Snapshot{
		URI:        doc.URI(),
		Text:       doc.Text(),
		Encoding:   doc.Encoding(),
		Generation: c.generation.Add(1),
	}
	run := newRun(c.ctx, snapshot)

	c.mu.Lock()
	state, ok := c.documents[snapshot.URI]
	if !ok {
		state = &documentState{}
		c.documents[snapshot.URI] = state
	}
	if state.current != nil {
		state.current.cancelRun()
		runsSuperseded.Inc()
		c.logger.Debug("Run superseded", "uri", snapshot.URI, "generation", state.current.Generation)
	}
	state.current = run
	if c.debounce > 0 {
		run.timer = time.AfterFunc(c.debounce, func() { c.execute(run) })
	} else {
		go c.execute(run)
	}
	c.mu.Unlock()

	runsStarted.Inc()
	c.logger.Debug("Run started", "uri", snapshot.URI, "generation", snapshot.Generation)
	return true
}

// Close forgets a document, cancelling its current run.
func (c *Coordinator) Close(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.documents[uri]; ok {
		if state.current != nil {
			state.current.cancelRun()
		}
		delete(c.documents, uri)
	}
}

// Shutdown cancels every run and forgets all documents.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for uri, state := range c.documents {
		if state.current != nil {
			state.current.cancelRun()
		}
		delete(c.documents, uri)
	}
}

// Current returns the generation of the document's run in flight.
func (c *Coordinator) Current(uri string) (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state, ok := c.documents[uri]
	if !ok || state.current == nil {
		return 0, false
	}
	return state.current.Generation, true
}

// execute runs on its own goroutine, never on the UI context.
func (c *Coordinator) execute(run *Run) {
	defer run.cancel()
	if run.Cancelled() {
		return
	}

	start := time.Now()
	output, err := c.runner.Run(run.ctx, run.snapshot)
	diagnostics := []diagnostic.Diagnostic{}
	if err == nil {
		diagnostics = diagnostic.Parse(output)
	}
	runDuration.UpdateDuration(start)
	run.finish(diagnostics, err)

	if run.Cancelled() {
		c.logger.Debug("Discarding superseded result", "uri", run.snapshot.URI, "generation", run.Generation)
		return
	}
	if err != nil {
		runsFailed.Inc()
		c.logger.Error("Linter run failed", "uri", run.snapshot.URI, "generation", run.Generation, "err", err)
	}

	if !c.dispatcher.Post(func() { c.deliver(run) }) {
		c.logger.Debug("UI context closed, dropping result", "uri", run.snapshot.URI, "generation", run.Generation)
	}
}

// deliver runs on the UI context.
func (c *Coordinator) deliver(run *Run) {
	completion := run.completion()

	c.mu.Lock()
	state, ok := c.documents[completion.URI]
	current := ok && state.current == run && !run.Cancelled()
	if current {
		state.current = nil
	}
	c.mu.Unlock()

	if !current {
		c.logger.Debug("Discarding superseded result", "uri", completion.URI, "generation", completion.Generation)
		return
	}

	runsPublished.Inc()
	c.logger.Info("Analysis completed",
		"uri", completion.URI,
		"generation", completion.Generation,
		"diagnostics", len(completion.Diagnostics),
	)
	c.onComplete(completion)
}
