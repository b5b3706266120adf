// Package tui is an interactive viewer that shows a file with live lint
// markers in the gutter.
package tui

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/matkrin/lintgutter/internal/annotation"
	"github.com/matkrin/lintgutter/internal/coordinator"
	"github.com/matkrin/lintgutter/internal/gutter"
	"github.com/matkrin/lintgutter/internal/language"
	"github.com/matkrin/lintgutter/internal/mainloop"
	"github.com/matkrin/lintgutter/internal/utils"
)

type Options struct {
	Runner   coordinator.Runner
	Language string
	Encoding string
	Debounce time.Duration
	Priority int
	Logger   *slog.Logger
	Input    io.Reader
	Output   io.Writer
}

type fileDocument struct {
	path     string
	text     string
	encoding string
}

func (d fileDocument) URI() string      { return utils.PathToURI(d.path) }
func (d fileDocument) Text() string     { return d.text }
func (d fileDocument) Encoding() string { return d.encoding }
func (d fileDocument) Language() string { return language.Detect(d.path, d.text) }

type fileLoadedMsg struct {
	text string
	err  error
}

type Model struct {
	doc         fileDocument
	lines       []string
	surface     *annotation.Surface
	margin      *gutter.Margin
	coordinator *coordinator.Coordinator
	keys        keyMap
	help        help.Model
	logger      *slog.Logger

	cursor   int // 1-based
	offset   int
	width    int
	height   int
	status   string
	analyzed bool
}

func newModel(path string, options Options, dispatcher mainloop.Dispatcher) (*Model, error) {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	margin := &gutter.Margin{}
	m := &Model{
		doc:     fileDocument{path: path, encoding: options.Encoding},
		surface: annotation.NewSurface(margin, options.Priority),
		margin:  margin,
		keys:    defaultKeyMap(),
		help:    help.New(),
		logger:  logger,
		cursor:  1,
		width:   80,
		height:  24,
	}

	coord, err := coordinator.New(coordinator.Options{
		Language:   options.Language,
		Runner:     options.Runner,
		Dispatcher: dispatcher,
		OnComplete: m.onComplete,
		Debounce:   options.Debounce,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}
	m.coordinator = coord
	return m, nil
}

// Run shows path until the user quits.
func Run(path string, options Options) error {
	var program *tea.Program
	d := newDispatcher(func(msg tea.Msg) { program.Send(msg) })
	defer d.Close()

	m, err := newModel(path, options, d)
	if err != nil {
		return err
	}
	defer m.coordinator.Shutdown()

	programOptions := []tea.ProgramOption{tea.WithAltScreen()}
	if options.Input != nil {
		programOptions = append(programOptions, tea.WithInput(options.Input))
	}
	if options.Output != nil {
		programOptions = append(programOptions, tea.WithOutput(options.Output))
	}
	program = tea.NewProgram(m, programOptions...)

	_, err = program.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.loadFile
}

func (m *Model) loadFile() tea.Msg {
	data, err := os.ReadFile(m.doc.path)
	return fileLoadedMsg{text: string(data), err: err}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskMsg:
		msg()
		return m, nil

	case fileLoadedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("could not read %s: %v", m.doc.path, msg.err)
			return m, nil
		}
		m.doc.text = msg.text
		m.lines = strings.Split(strings.TrimSuffix(msg.text, "\n"), "\n")
		m.clampCursor()
		m.analyzed = m.coordinator.Trigger(m.doc)
		if !m.analyzed {
			m.surface.Deactivate()
			m.status = fmt.Sprintf("%s is not analyzed", filepath.Base(m.doc.path))
		} else {
			m.status = "linting..."
		}
		return m, nil

	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
		if msg.Height > 0 {
			m.height = msg.Height
		}
		m.help.Width = m.width
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.cursor--
		case key.Matches(msg, m.keys.Down):
			m.cursor++
		case key.Matches(msg, m.keys.Reload):
			return m, m.loadFile
		}
		m.clampCursor()
		return m, nil
	}
	return m, nil
}

func (m *Model) onComplete(completion coordinator.Completion) {
	m.surface.SetProjection(completion.Generation, completion.Projection)
	if completion.Err != nil {
		m.status = "linter failed, see log"
		return
	}
	errs, warnings, infos := gutter.Count(completion.Diagnostics)
	m.status = fmt.Sprintf("%d errors, %d warnings, %d info", errs, warnings, infos)
}

func (m *Model) bodyHeight() int {
	return max(m.height-3, 1)
}

func (m *Model) clampCursor() {
	m.cursor = min(m.cursor, len(m.lines))
	m.cursor = max(m.cursor, 1)

	body := m.bodyHeight()
	if m.cursor-1 < m.offset {
		m.offset = m.cursor - 1
	}
	if m.cursor > m.offset+body {
		m.offset = m.cursor - body
	}
}

var (
	cursorStyle = lipgloss.NewStyle().Reverse(true)
	numberStyle = lipgloss.NewStyle().Faint(true)
	statusStyle = lipgloss.NewStyle().Bold(true)
)

func (m *Model) View() string {
	var b strings.Builder

	numberWidth := len(fmt.Sprint(len(m.lines)))
	end := min(m.offset+m.bodyHeight(), len(m.lines))
	for i := m.offset; i < end; i++ {
		lineNumber := i + 1
		marker := " "
		if hex, ok := m.surface.MarkerColor(lineNumber); ok {
			marker = lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("●")
		}
		text := runewidth.Truncate(m.lines[i], max(m.width-numberWidth-5, 1), "…")
		if lineNumber == m.cursor {
			text = cursorStyle.Render(text)
		}
		fmt.Fprintf(&b, "%s %s │ %s\n", marker, numberStyle.Render(fmt.Sprintf("%*d", numberWidth, lineNumber)), text)
	}

	b.WriteString(statusStyle.Render(m.statusLine()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// statusLine shows the tooltip of the cursor line, or the overall state.
func (m *Model) statusLine() string {
	line := fmt.Sprintf("%s:%d", filepath.Base(m.doc.path), m.cursor)
	if tooltip, ok := m.surface.QueryTooltip(m.cursor); ok {
		return runewidth.Truncate(fmt.Sprintf("%s %s", line, tooltip.Text), m.width, "…")
	}
	return runewidth.Truncate(fmt.Sprintf("%s %s", line, m.status), m.width, "…")
}
