package server

import (
	"strings"

	"fortio.org/safecast"

	"github.com/matkrin/lintgutter/internal/diagnostic"
	"github.com/matkrin/lintgutter/internal/lsp"
)

// publishingMargin stands in for a gutter on the client side: drawing
// publishes the surface's markers, removing publishes an empty list.
type publishingMargin struct {
	server *Server
	doc    *Document
}

func (m *publishingMargin) Insert(priority int) {
	m.server.logger.Debug("Margin inserted", "uri", m.doc.uri, "priority", priority)
}

func (m *publishingMargin) Remove() {
	m.server.pushDiagnostic(m.doc.uri, &m.doc.version, []lsp.Diagnostic{})
}

func (m *publishingMargin) QueueDraw() {
	markers := m.doc.surface.Markers()
	lines := strings.Split(m.doc.text, "\n")

	diagnostics := make([]lsp.Diagnostic, 0, len(markers))
	for _, marker := range markers {
		d, err := toLspDiagnostic(marker, lines)
		if err != nil {
			m.server.logger.Error("Could not convert diagnostic", "uri", m.doc.uri, "line", marker.Line, "err", err)
			continue
		}
		diagnostics = append(diagnostics, d)
	}
	m.server.pushDiagnostic(m.doc.uri, &m.doc.version, diagnostics)
}

// toLspDiagnostic resolves the marker's range against the current text: the
// word at the reported column, or the whole line without a column.
func toLspDiagnostic(d diagnostic.Diagnostic, lines []string) (lsp.Diagnostic, error) {
	lineText := ""
	if d.Line-1 < len(lines) {
		lineText = strings.TrimSuffix(lines[d.Line-1], "\r")
	}

	var start, end int
	if d.Column > 0 {
		start, end = diagnostic.WordBounds(lineText, d.Column-1)
	} else {
		end = len([]rune(lineText))
	}

	// Characters are counted in runes, not the UTF-16 units LSP asks for;
	// the two differ only outside the Basic Multilingual Plane.
	line, err := safecast.Conv[uint](d.Line - 1)
	if err != nil {
		return lsp.Diagnostic{}, err
	}
	startChar, err := safecast.Conv[uint](start)
	if err != nil {
		return lsp.Diagnostic{}, err
	}
	endChar, err := safecast.Conv[uint](end)
	if err != nil {
		return lsp.Diagnostic{}, err
	}

	code, _, _ := strings.Cut(d.Message, " ")
	var codePtr *string
	if code != "" && code != d.Message {
		codePtr = &code
	}

	return lsp.Diagnostic{
		Range:    lsp.NewRange(line, startChar, line, endChar),
		Severity: lspSeverity(d.Severity),
		Code:     codePtr,
		Source:   "lintgutter",
		Message:  d.Message,
	}, nil
}

func lspSeverity(severity diagnostic.Severity) lsp.DiagnosticSeverity {
	switch severity {
	case diagnostic.SeverityError:
		return lsp.DiagnosticError
	case diagnostic.SeverityWarning:
		return lsp.DiagnosticWarning
	case diagnostic.SeverityInfo:
		return lsp.DiagnosticInformation
	default:
		return lsp.DiagnosticHint
	}
}
