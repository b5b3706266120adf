package diagnostic

import "testing"

func TestProjectLastWins(t *testing.T) {
	first := Diagnostic{Line: 2, Column: 1, Severity: SeverityWarning, Message: "W191 tabs"}
	second := Diagnostic{Line: 2, Column: 8, Severity: SeverityError, Message: "E225 missing whitespace"}
	other := Diagnostic{Line: 5, Severity: SeverityInfo, Message: "F841 unused"}

	projection := Project([]Diagnostic{first, other, second})

	if len(projection) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(projection))
	}
	if projection[2] != second {
		t.Errorf("expected last diagnostic on line 2 to win, got %+v", projection[2])
	}
	if projection[5] != other {
		t.Errorf("expected %+v on line 5, got %+v", other, projection[5])
	}
}

func TestSeverityColor(t *testing.T) {
	if SeverityNone.Color() != "" {
		t.Errorf("expected no color for SeverityNone, got %q", SeverityNone.Color())
	}
	colors := map[Severity]string{
		SeverityInfo:    "#2D10E6",
		SeverityWarning: "#CDD415",
		SeverityError:   "#D4153E",
	}
	for severity, expected := range colors {
		if got := severity.Color(); got != expected {
			t.Errorf("%s.Color() = %q, expected %q", severity, got, expected)
		}
	}
}

func TestWordBounds(t *testing.T) {
	var testCases = []struct {
		line       string
		column     int
		start, end int
	}{
		{"import os", 7, 7, 9},
		{"import os", 0, 0, 6},
		{"x = foo_bar(1)", 6, 4, 11},
		{"a  b", 2, 2, 2},
		{"ünïcode = 1", 3, 0, 7},
		{"short", 40, 0, 5},
		{"", 3, 0, 0},
	}

	for _, tt := range testCases {
		start, end := WordBounds(tt.line, tt.column)
		if start != tt.start || end != tt.end {
			t.Errorf("WordBounds(%q, %d) = (%d, %d), expected (%d, %d)",
				tt.line, tt.column, start, end, tt.start, tt.end)
		}
	}
}
