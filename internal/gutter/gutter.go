// Package gutter prints a document with a one-cell marker column, the way a
// margin renderer would paint it.
package gutter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"github.com/matkrin/lintgutter/internal/annotation"
	"github.com/matkrin/lintgutter/internal/diagnostic"
)

type Options struct {
	Color    bool
	Tooltips bool // print the tooltip under each marked line
	Width    int  // tooltips are cut to this many cells, 0 for no limit
}

// Margin is the terminal stand-in for an editor gutter. It only tracks
// whether the column is shown and how often a repaint was requested.
type Margin struct {
	Priority int
	Active   bool
	Draws    int
}

func (m *Margin) Insert(priority int) {
	m.Priority = priority
	m.Active = true
}

func (m *Margin) Remove() {
	m.Active = false
}

func (m *Margin) QueueDraw() {
	m.Draws++
}

// Render writes text line by line, each prefixed with its marker and line
// number.
func Render(w io.Writer, text string, surface *annotation.Surface, opts Options) error {
	lines := splitLines(text)
	renderer := newRenderer(w, opts.Color)
	numberWidth := len(strconv.Itoa(len(lines)))
	dim := renderer.NewStyle().Faint(true)

	for i, lineText := range lines {
		lineNumber := i + 1
		marker := " "
		if hex, ok := surface.MarkerColor(lineNumber); ok {
			d, _ := surface.QueryMarker(lineNumber)
			marker = markerCell(renderer, d.Severity, hex, opts.Color)
		}

		number := fmt.Sprintf("%*d", numberWidth, lineNumber)
		if opts.Color {
			number = dim.Render(number)
		}
		if _, err := fmt.Fprintf(w, "%s %s │ %s\n", marker, number, lineText); err != nil {
			return err
		}

		if !opts.Tooltips {
			continue
		}
		if tooltip, ok := surface.QueryTooltip(lineNumber); ok {
			indent := strings.Repeat(" ", numberWidth+2)
			text := truncate(tooltip.Text, opts.Width-len(indent)-4)
			if opts.Color {
				text = dim.Render(text)
			}
			if _, err := fmt.Fprintf(w, "%s └─ %s\n", indent, text); err != nil {
				return err
			}
		}
	}
	return nil
}

// Summary prints one line with the number of markers per severity.
func Summary(w io.Writer, name string, markers []diagnostic.Diagnostic, opts Options) error {
	errs, warnings, infos := Count(markers)

	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	blue := color.New(color.FgBlue)
	for _, c := range []*color.Color{red, yellow, blue} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	_, err := fmt.Fprintf(w, "%s: %s, %s, %s\n",
		name,
		red.Sprint(plural(errs, "error")),
		yellow.Sprint(plural(warnings, "warning")),
		blue.Sprint(plural(infos, "info")),
	)
	return err
}

func Count(markers []diagnostic.Diagnostic) (errs, warnings, infos int) {
	for _, d := range markers {
		switch d.Severity {
		case diagnostic.SeverityError:
			errs++
		case diagnostic.SeverityWarning:
			warnings++
		case diagnostic.SeverityInfo:
			infos++
		}
	}
	return errs, warnings, infos
}

func markerCell(renderer *lipgloss.Renderer, severity diagnostic.Severity, hex string, useColor bool) string {
	if !useColor {
		return strings.ToUpper(severity.String()[:1])
	}
	return renderer.NewStyle().Foreground(lipgloss.Color(hex)).Render("●")
}

func newRenderer(w io.Writer, useColor bool) *lipgloss.Renderer {
	renderer := lipgloss.NewRenderer(w)
	if useColor {
		renderer.SetColorProfile(termenv.TrueColor)
	} else {
		renderer.SetColorProfile(termenv.Ascii)
	}
	return renderer
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width, "...")
}

func plural(n int, word string) string {
	if n == 1 || word == "info" {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
