package coordinator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/matkrin/lintgutter/internal/annotation"
	"github.com/matkrin/lintgutter/internal/diagnostic"
	"github.com/matkrin/lintgutter/internal/linter"
	"github.com/matkrin/lintgutter/internal/mainloop"
)

type testDocument struct {
	uri, text, encoding, language string
}

func (d testDocument) URI() string      { return d.uri }
func (d testDocument) Text() string     { return d.text }
func (d testDocument) Encoding() string { return d.encoding }
func (d testDocument) Language() string { return d.language }

func pythonDoc(text string) testDocument {
	return testDocument{uri: "file:///work/foo.py", text: text, encoding: "utf-8", language: "Python"}
}

type runnerFunc func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error)

func (f runnerFunc) Run(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
	return f(ctx, snapshot)
}

// manualDispatcher holds posted tasks until flush is called.
type manualDispatcher struct {
	mu     sync.Mutex
	tasks  []func()
	posted chan struct{}
}

func newManualDispatcher() *manualDispatcher {
	return &manualDispatcher{posted: make(chan struct{}, 16)}
}

func (d *manualDispatcher) Post(fn func()) bool {
	d.mu.Lock()
	d.tasks = append(d.tasks, fn)
	d.mu.Unlock()
	d.posted <- struct{}{}
	return true
}

func (d *manualDispatcher) flush() {
	d.mu.Lock()
	tasks := d.tasks
	d.tasks = nil
	d.mu.Unlock()
	for _, task := range tasks {
		task()
	}
}

func waitFor[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}

// drain waits until every task posted to loop so far has run.
func drain(t *testing.T, loop *mainloop.Loop) {
	t.Helper()
	done := make(chan struct{})
	loop.Post(func() { close(done) })
	waitFor(t, done)
}

func newCoordinator(t *testing.T, runner Runner, dispatcher mainloop.Dispatcher, onComplete func(Completion)) *Coordinator {
	t.Helper()
	c, err := New(Options{
		Language:   "python",
		Runner:     runner,
		Dispatcher: dispatcher,
		OnComplete: onComplete,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Shutdown)
	return c
}

func startLoop(t *testing.T) *mainloop.Loop {
	t.Helper()
	loop := mainloop.New()
	loop.Start()
	t.Cleanup(loop.Stop)
	return loop
}

func TestTriggerPublishesDiagnostics(t *testing.T) {
	loop := startLoop(t)
	completions := make(chan Completion, 1)
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		return []byte("foo.py:3:1: E501 line too long\n"), nil
	})
	c := newCoordinator(t, runner, loop, func(completion Completion) { completions <- completion })

	if !c.Trigger(pythonDoc("x = 1\n")) {
		t.Fatal("expected python document to be applicable")
	}
	completion := waitFor(t, completions)

	expected := []diagnostic.Diagnostic{
		{Line: 3, Column: 1, Severity: diagnostic.SeverityError, Message: "E501 line too long"},
	}
	if diff := cmp.Diff(expected, completion.Diagnostics); diff != "" {
		t.Errorf("diagnostics mismatch (-want +got):\n%s", diff)
	}
	if _, ok := completion.Projection[3]; !ok {
		t.Errorf("expected line 3 in projection")
	}
	if completion.URI != "file:///work/foo.py" || completion.Generation == 0 {
		t.Errorf("unexpected completion %+v", completion)
	}
	if _, ok := c.Current(completion.URI); ok {
		t.Errorf("expected no run in flight after completion")
	}
}

func TestTriggerNotApplicable(t *testing.T) {
	loop := startLoop(t)
	var calls atomic.Int32
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		calls.Add(1)
		return nil, nil
	})
	c := newCoordinator(t, runner, loop, nil)

	if c.Trigger(nil) {
		t.Error("expected nil document not to be applicable")
	}
	if c.Trigger(testDocument{uri: "file:///a.rb", language: "ruby"}) {
		t.Error("expected ruby document not to be applicable")
	}
	if c.Trigger(testDocument{uri: "file:///a", language: ""}) {
		t.Error("expected document without language not to be applicable")
	}
	drain(t, loop)
	if calls.Load() != 0 {
		t.Errorf("expected the linter not to run, ran %d times", calls.Load())
	}
}

func TestTriggerSnapshotsText(t *testing.T) {
	loop := startLoop(t)
	texts := make(chan string, 1)
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		texts <- snapshot.Text
		return nil, nil
	})
	c := newCoordinator(t, runner, loop, nil)

	doc := &mutableDocument{testDocument: pythonDoc("before\n")}
	c.Trigger(doc)
	doc.text = "after\n"

	if got := waitFor(t, texts); got != "before\n" {
		t.Errorf("expected snapshot taken at trigger time, linter saw %q", got)
	}
}

type mutableDocument struct {
	testDocument
}

func (d *mutableDocument) Text() string { return d.text }

func TestSupersededRunNeverPublished(t *testing.T) {
	loop := startLoop(t)

	releaseFirst := make(chan struct{})
	firstReturned := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		if snapshot.Text == "first" {
			// Ignore ctx: the result must be dropped even when the tool
			// keeps running to completion.
			<-releaseFirst
			defer close(firstReturned)
			return []byte("a.py:8:1: W605 stale\n"), nil
		}
		return []byte("a.py:2:1: E111 fresh\n"), nil
	})

	var mu sync.Mutex
	var completions []Completion
	published := make(chan struct{}, 4)
	c := newCoordinator(t, runner, loop, func(completion Completion) {
		mu.Lock()
		completions = append(completions, completion)
		mu.Unlock()
		published <- struct{}{}
	})

	c.Trigger(pythonDoc("first"))
	c.Trigger(pythonDoc("second"))
	waitFor(t, published)

	close(releaseFirst)
	waitFor(t, firstReturned)
	time.Sleep(20 * time.Millisecond)
	drain(t, loop)

	mu.Lock()
	defer mu.Unlock()
	if len(completions) != 1 {
		t.Fatalf("expected exactly one published result, got %d", len(completions))
	}
	if completions[0].Diagnostics[0].Message != "E111 fresh" {
		t.Errorf("expected the superseding run to be published, got %+v", completions[0])
	}
}

func TestCancelledBeforeDelivery(t *testing.T) {
	dispatcher := newManualDispatcher()
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		return []byte("a.py:1:1: E1 " + snapshot.Text + "\n"), nil
	})

	var completions []Completion
	c := newCoordinator(t, runner, dispatcher, func(completion Completion) {
		completions = append(completions, completion)
	})

	c.Trigger(pythonDoc("old"))
	waitFor(t, dispatcher.posted)

	// The first run has already handed over its result, but a newer trigger
	// arrives before the UI context gets to it.
	c.Trigger(pythonDoc("new"))
	waitFor(t, dispatcher.posted)
	dispatcher.flush()

	if len(completions) != 1 {
		t.Fatalf("expected one completion, got %d", len(completions))
	}
	if completions[0].Diagnostics[0].Message != "E1 new" {
		t.Errorf("expected only the newer result, got %+v", completions[0])
	}
}

func TestFailedRunPublishesNothing(t *testing.T) {
	loop := startLoop(t)
	completions := make(chan Completion, 1)
	failure := errors.New("exec: \"flake8\": executable file not found in $PATH")
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		return nil, failure
	})
	c := newCoordinator(t, runner, loop, func(completion Completion) { completions <- completion })

	c.Trigger(pythonDoc("x"))
	completion := waitFor(t, completions)

	if !errors.Is(completion.Err, failure) {
		t.Errorf("expected run failure to be reported, got %v", completion.Err)
	}
	if len(completion.Diagnostics) != 0 || len(completion.Projection) != 0 {
		t.Errorf("expected no diagnostics for a failed run, got %+v", completion)
	}
}

func TestDebounceCoalescesTriggers(t *testing.T) {
	loop := startLoop(t)
	var calls atomic.Int32
	completions := make(chan Completion, 4)
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		calls.Add(1)
		return []byte("a.py:1: E1 " + snapshot.Text), nil
	})
	c, err := New(Options{
		Language:   "python",
		Runner:     runner,
		Dispatcher: loop,
		OnComplete: func(completion Completion) { completions <- completion },
		Debounce:   50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Shutdown()

	c.Trigger(pythonDoc("one"))
	c.Trigger(pythonDoc("two"))
	c.Trigger(pythonDoc("three"))

	completion := waitFor(t, completions)
	if completion.Diagnostics[0].Message != "E1 three" {
		t.Errorf("expected the last trigger to be analyzed, got %q", completion.Diagnostics[0].Message)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one linter run, got %d", calls.Load())
	}
}

func TestCloseCancelsRun(t *testing.T) {
	loop := startLoop(t)
	started := make(chan struct{})
	stopped := make(chan error, 1)
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		close(started)
		<-ctx.Done()
		stopped <- ctx.Err()
		return nil, ctx.Err()
	})
	published := make(chan Completion, 1)
	c := newCoordinator(t, runner, loop, func(completion Completion) { published <- completion })

	doc := pythonDoc("x")
	c.Trigger(doc)
	waitFor(t, started)
	c.Close(doc.URI())

	if err := waitFor(t, stopped); !errors.Is(err, context.Canceled) {
		t.Errorf("expected the run to be cancelled, got %v", err)
	}
	drain(t, loop)
	select {
	case completion := <-published:
		t.Errorf("closed document published %+v", completion)
	default:
	}
}

func TestNotApplicableCancelsRunInFlight(t *testing.T) {
	loop := startLoop(t)
	started := make(chan struct{})
	release := make(chan struct{})
	returned := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		close(started)
		<-release
		defer close(returned)
		return []byte("script:1:80: E501 line too long\n"), nil
	})
	published := make(chan Completion, 1)
	c := newCoordinator(t, runner, loop, func(completion Completion) { published <- completion })

	doc := &mutableDocument{testDocument: pythonDoc("#!/usr/bin/env python\n")}
	if !c.Trigger(doc) {
		t.Fatal("expected python document to be applicable")
	}
	waitFor(t, started)

	doc.language = ""
	if c.Trigger(doc) {
		t.Fatal("expected document without language not to be applicable")
	}
	if _, ok := c.Current(doc.URI()); ok {
		t.Error("expected no run in flight once the document stopped being applicable")
	}

	close(release)
	waitFor(t, returned)
	drain(t, loop)
	select {
	case completion := <-published:
		t.Errorf("result for a document that is no longer applicable was published: %+v", completion)
	default:
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	if _, err := New(Options{Dispatcher: mainloop.New()}); !errors.Is(err, ErrNoRunner) {
		t.Errorf("expected ErrNoRunner, got %v", err)
	}
	runner := runnerFunc(func(context.Context, linter.Snapshot) ([]byte, error) { return nil, nil })
	if _, err := New(Options{Runner: runner}); !errors.Is(err, ErrNoDispatcher) {
		t.Errorf("expected ErrNoDispatcher, got %v", err)
	}
}

// The scenarios below drive the coordinator into an annotation surface the
// way a host does.

type nopMargin struct{}

func (nopMargin) Insert(int) {}
func (nopMargin) Remove()    {}
func (nopMargin) QueueDraw() {}

func TestEndToEndMarkers(t *testing.T) {
	loop := startLoop(t)
	surface := annotation.NewSurface(nopMargin{}, 0)
	applied := make(chan struct{}, 1)
	output := "foo.py:3:1: E501 line too long\n"
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		return []byte(output), nil
	})
	c := newCoordinator(t, runner, loop, func(completion Completion) {
		surface.SetProjection(completion.Generation, completion.Projection)
		applied <- struct{}{}
	})

	c.Trigger(pythonDoc("x"))
	waitFor(t, applied)

	marker, ok := surface.QueryMarker(3)
	expected := diagnostic.Diagnostic{Line: 3, Column: 1, Severity: diagnostic.SeverityError, Message: "E501 line too long"}
	if !ok || marker != expected {
		t.Errorf("QueryMarker(3) = %+v, %v", marker, ok)
	}
	if _, ok := surface.QueryMarker(4); ok {
		t.Error("expected no marker on line 4")
	}
	if surface.State() != annotation.Active {
		t.Error("expected the surface to be active")
	}

	output = ""
	c.Trigger(pythonDoc("fixed"))
	waitFor(t, applied)

	if surface.State() != annotation.Inactive || surface.Len() != 0 {
		t.Errorf("expected an empty inactive surface, got %s with %d markers", surface.State(), surface.Len())
	}
}

func TestEndToEndLateCancelledRun(t *testing.T) {
	loop := startLoop(t)
	surface := annotation.NewSurface(nopMargin{}, 0)
	applied := make(chan struct{}, 2)

	releaseFirst := make(chan struct{})
	firstReturned := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context, snapshot linter.Snapshot) ([]byte, error) {
		if snapshot.Text == "slow" {
			<-releaseFirst
			defer close(firstReturned)
			return []byte("a.py:9:1: E999 stale\n"), nil
		}
		return []byte("a.py:1:1: W291 fresh\n"), nil
	})
	c := newCoordinator(t, runner, loop, func(completion Completion) {
		surface.SetProjection(completion.Generation, completion.Projection)
		applied <- struct{}{}
	})

	c.Trigger(pythonDoc("slow"))
	c.Trigger(pythonDoc("fast"))
	waitFor(t, applied)

	close(releaseFirst)
	waitFor(t, firstReturned)
	time.Sleep(20 * time.Millisecond)
	drain(t, loop)

	if _, ok := surface.QueryMarker(9); ok {
		t.Error("stale run overwrote the newer projection")
	}
	if marker, ok := surface.QueryMarker(1); !ok || marker.Message != "W291 fresh" {
		t.Errorf("expected newer projection to remain, got %+v, %v", marker, ok)
	}
}
