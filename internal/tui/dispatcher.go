package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/matkrin/lintgutter/internal/mainloop"
)

// taskMsg carries a posted task into the bubbletea event loop, which then
// runs it from Update.
type taskMsg func()

// dispatcher makes the bubbletea event loop the UI context. Sends go through
// a queue so Post never blocks and tasks arrive in the order they were posted.
type dispatcher struct {
	queue *mainloop.Loop
	send  func(tea.Msg)
}

func newDispatcher(send func(tea.Msg)) *dispatcher {
	d := &dispatcher{queue: mainloop.New(), send: send}
	d.queue.Start()
	return d
}

func (d *dispatcher) Post(fn func()) bool {
	return d.queue.Post(func() { d.send(taskMsg(fn)) })
}

func (d *dispatcher) Close() {
	d.queue.Stop()
}
