package diagnostic

import (
	"regexp"
	"strconv"
	"strings"
)

// path:line:[column:]message
var lineFormat = regexp.MustCompile(`^([^:]+):(\d+):(?:(\d+):)?\s*(.*)$`)

// Parse turns raw linter output into diagnostics. Lines that do not look like
// a diagnostic (banners, summaries) are skipped, so Parse never fails.
func Parse(output []byte) []Diagnostic {
	diagnostics := []Diagnostic{}

	for line := range strings.SplitSeq(string(output), "\n") {
		d, ok := parseLine(strings.TrimRight(line, "\r"))
		if !ok {
			continue
		}
		diagnostics = append(diagnostics, d)
	}

	return diagnostics
}

func parseLine(line string) (Diagnostic, bool) {
	m := lineFormat.FindStringSubmatch(line)
	if m == nil {
		return Diagnostic{}, false
	}

	lineNumber, err := strconv.Atoi(m[2])
	if err != nil || lineNumber < 1 {
		return Diagnostic{}, false
	}

	column := 0
	if m[3] != "" {
		column, err = strconv.Atoi(m[3])
		if err != nil {
			return Diagnostic{}, false
		}
	}

	message := m[4]
	return Diagnostic{
		Line:     lineNumber,
		Column:   column,
		Severity: SeverityFromMessage(message),
		Message:  message,
	}, true
}
