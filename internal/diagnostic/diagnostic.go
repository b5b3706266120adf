package diagnostic

import (
	"unicode"
)

type Severity int

const (
	SeverityNone Severity = iota
	SeverityInfo
	SeverityWarning
	SeverityError
)

var severityColors = map[Severity]string{
	SeverityInfo:    "#2D10E6",
	SeverityWarning: "#CDD415",
	SeverityError:   "#D4153E",
}

// SeverityFromMessage classifies a linter message by the first letter of its
// code, e.g. "E501 line too long" or "W291 trailing whitespace".
func SeverityFromMessage(message string) Severity {
	switch {
	case len(message) > 0 && message[0] == 'E':
		return SeverityError
	case len(message) > 0 && message[0] == 'W':
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "none"
	}
}

// Color returns the marker color as a hex string, or "" when nothing should
// be drawn.
func (s Severity) Color() string {
	return severityColors[s]
}

// Diagnostic is one issue reported by the external linter.
type Diagnostic struct {
	Line     int // 1-based
	Column   int // 0 when the tool omits it
	Severity Severity
	Message  string
}

// Project keys diagnostics by line. When several diagnostics share a line the
// last one wins.
func Project(diagnostics []Diagnostic) map[int]Diagnostic {
	projection := make(map[int]Diagnostic, len(diagnostics))
	for _, d := range diagnostics {
		projection[d.Line] = d
	}
	return projection
}

// WordBounds returns the character range of the word touching column in
// lineText. Without a word there, start == end == the clamped column.
func WordBounds(lineText string, column int) (int, int) {
	runes := []rune(lineText)
	if column < 0 {
		column = 0
	}
	if column > len(runes) {
		column = len(runes)
	}

	start := column
	for start > 0 && isWordRune(runes[start-1]) {
		start--
	}
	end := column
	for end < len(runes) && isWordRune(runes[end]) {
		end++
	}
	return start, end
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
