// Package annotation holds the line to diagnostic projection that a margin
// renderer reads while painting and answering tooltip queries.
package annotation

import (
	"maps"
	"slices"
	"sync/atomic"

	"github.com/matkrin/lintgutter/internal/diagnostic"
)

// DefaultPriority is the gutter slot the surface asks for when inserted.
const DefaultPriority = 40

type State int

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Margin is the host's gutter. Insert and Remove add and take away the
// annotation column; QueueDraw asks for a repaint of it.
type Margin interface {
	Insert(priority int)
	Remove()
	QueueDraw()
}

type Tooltip struct {
	Line int
	Text string
}

type projection struct {
	generation uint64
	lines      map[int]diagnostic.Diagnostic
}

var emptyProjection = &projection{lines: map[int]diagnostic.Diagnostic{}}

// Surface is written only from the UI execution context through
// SetProjection and Deactivate. Queries may run anywhere and always see the
// last published projection as a whole.
type Surface struct {
	margin   Margin
	priority int

	current  atomic.Pointer[projection]
	inserted atomic.Bool
	accepted uint64
}

func NewSurface(margin Margin, priority int) *Surface {
	if priority <= 0 {
		priority = DefaultPriority
	}
	s := &Surface{margin: margin, priority: priority}
	s.current.Store(emptyProjection)
	return s
}

// SetProjection replaces the projection. A projection older than the last
// accepted generation is rejected and false is returned. An empty projection
// clears all markers and takes the surface out of the margin.
func (s *Surface) SetProjection(generation uint64, lines map[int]diagnostic.Diagnostic) bool {
	if generation < s.accepted {
		return false
	}
	s.accepted = generation

	if len(lines) == 0 {
		s.current.Store(&projection{generation: generation, lines: emptyProjection.lines})
		if s.inserted.Load() {
			s.margin.Remove()
			s.inserted.Store(false)
		}
		return true
	}

	s.current.Store(&projection{generation: generation, lines: lines})
	if !s.inserted.Load() {
		s.margin.Insert(s.priority)
		s.inserted.Store(true)
	}
	s.margin.QueueDraw()
	return true
}

// Deactivate is called on document teardown.
func (s *Surface) Deactivate() {
	if s.inserted.Load() {
		s.margin.Remove()
		s.inserted.Store(false)
	}
	s.current.Store(emptyProjection)
	s.accepted = 0
}

func (s *Surface) State() State {
	if s.inserted.Load() {
		return Active
	}
	return Inactive
}

// Generation of the projection currently shown.
func (s *Surface) Generation() uint64 {
	return s.current.Load().generation
}

func (s *Surface) QueryMarker(line int) (diagnostic.Diagnostic, bool) {
	d, ok := s.current.Load().lines[line]
	return d, ok
}

func (s *Surface) QueryTooltip(line int) (Tooltip, bool) {
	d, ok := s.QueryMarker(line)
	if !ok {
		return Tooltip{}, false
	}
	return Tooltip{Line: line, Text: d.Message}, true
}

// MarkerColor is what the renderer paints for line, "" and false for nothing.
func (s *Surface) MarkerColor(line int) (string, bool) {
	d, ok := s.QueryMarker(line)
	if !ok || d.Severity == diagnostic.SeverityNone {
		return "", false
	}
	return d.Severity.Color(), true
}

// Markers returns the projected diagnostics ordered by line.
func (s *Surface) Markers() []diagnostic.Diagnostic {
	lines := s.current.Load().lines
	markers := make([]diagnostic.Diagnostic, 0, len(lines))
	for _, line := range slices.Sorted(maps.Keys(lines)) {
		markers = append(markers, lines[line])
	}
	return markers
}

func (s *Surface) Len() int {
	return len(s.current.Load().lines)
}
