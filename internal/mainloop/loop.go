// Package mainloop provides the single-threaded execution context that owns
// all UI state. Background work hands results over by posting tasks.
package mainloop

import "sync"

// Dispatcher schedules fn to run on a UI execution context. Post must not
// block and reports false when the context no longer accepts work.
type Dispatcher interface {
	Post(fn func()) bool
}

// Loop runs posted tasks one at a time, in the order they were posted, on a
// single goroutine.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool
	wake   chan struct{}
	done   chan struct{}
	once   sync.Once
}

func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Start runs the loop on a new goroutine.
func (l *Loop) Start() {
	l.once.Do(func() { go l.run() })
}

func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Close stops accepting tasks. Tasks already posted still run.
func (l *Loop) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until the loop has drained its queue after Close.
func (l *Loop) Wait() {
	<-l.done
}

// Stop closes the loop and waits for it. It must not be called from a task.
func (l *Loop) Stop() {
	l.Start()
	l.Close()
	l.Wait()
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		tasks := l.queue
		l.queue = nil
		closed := l.closed
		l.mu.Unlock()

		for _, task := range tasks {
			task()
		}

		if len(tasks) == 0 {
			if closed {
				return
			}
			<-l.wake
		}
	}
}
