package linter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake linter needs /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "fake-linter")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("writing fake linter: %v", err)
	}
	return path
}

func newLinter(t *testing.T, tool string) *Linter {
	t.Helper()
	l, err := New(Options{Command: []string{tool}, TempDir: t.TempDir(), Suffix: ".py"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return l
}

func TestRunStdout(t *testing.T) {
	tool := fakeTool(t, `echo "$1:3:1: E501 line too long"`)
	l := newLinter(t, tool)

	output, err := l.Run(context.Background(), Snapshot{URI: "file:///a.py", Text: "x = 1\n", Generation: 7})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	path, rest, ok := strings.Cut(strings.TrimSpace(string(output)), ":3:1:")
	if !ok {
		t.Fatalf("unexpected output %q", output)
	}
	if rest != " E501 line too long" {
		t.Errorf("unexpected message %q", rest)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "lintgutter-7-") || !strings.HasSuffix(base, ".py") {
		t.Errorf("snapshot file %q is not run scoped", base)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected snapshot file %s to be removed, stat err = %v", path, err)
	}
}

func TestRunFallsBackToStderr(t *testing.T) {
	tool := fakeTool(t, `echo "fake-linter: cannot analyse $1" >&2
exit 2`)
	l := newLinter(t, tool)

	output, err := l.Run(context.Background(), Snapshot{Text: "x"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.HasPrefix(string(output), "fake-linter: cannot analyse") {
		t.Errorf("expected stderr output, got %q", output)
	}
}

func TestRunNoOutput(t *testing.T) {
	tool := fakeTool(t, `exit 0`)
	l := newLinter(t, tool)

	output, err := l.Run(context.Background(), Snapshot{Text: "x"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(output) != 0 {
		t.Errorf("expected empty output, got %q", output)
	}
}

func TestRunWritesSnapshotInEncoding(t *testing.T) {
	tool := fakeTool(t, `wc -c < "$1" | tr -d ' '`)
	l := newLinter(t, tool)

	output, err := l.Run(context.Background(), Snapshot{Text: "é", Encoding: "ISO-8859-1"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(string(output)); got != "1" {
		t.Errorf("expected a single latin-1 byte, file had %s bytes", got)
	}
}

func TestRunUndecodableOutput(t *testing.T) {
	tool := fakeTool(t, `cat "$1"`)
	l := newLinter(t, tool)

	_, err := l.Run(context.Background(), Snapshot{Text: "é", Encoding: "latin1"})
	if !errors.Is(err, ErrUndecodableOutput) {
		t.Errorf("expected ErrUndecodableOutput, got %v", err)
	}
}

func TestRunUnknownEncoding(t *testing.T) {
	tool := fakeTool(t, `exit 0`)
	l := newLinter(t, tool)

	_, err := l.Run(context.Background(), Snapshot{Text: "x", Encoding: "no-such-charset"})
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("expected ErrUnknownEncoding, got %v", err)
	}
}

func TestRunLaunchFailure(t *testing.T) {
	l := newLinter(t, filepath.Join(t.TempDir(), "does-not-exist"))

	if _, err := l.Run(context.Background(), Snapshot{Text: "x"}); err == nil {
		t.Error("expected an error for a missing linter binary")
	}
}

func TestRunKilledOnCancel(t *testing.T) {
	tool := fakeTool(t, `exec sleep 10`)
	l := newLinter(t, tool)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	start := time.Now()
	_, err := l.Run(ctx, Snapshot{Text: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("linter was not killed on cancel, took %s", elapsed)
	}
}

func TestNewEmptyCommand(t *testing.T) {
	if _, err := New(Options{}, nil); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("expected ErrEmptyCommand, got %v", err)
	}
}

func TestSplitCommand(t *testing.T) {
	fields, err := SplitCommand(`flake8 --max-line-length=100 --select 'E,W'`)
	if err != nil {
		t.Fatalf("SplitCommand: %v", err)
	}
	expected := []string{"flake8", "--max-line-length=100", "--select", "E,W"}
	if strings.Join(fields, "|") != strings.Join(expected, "|") {
		t.Errorf("expected %q, got %q", expected, fields)
	}

	if _, err := SplitCommand("   "); !errors.Is(err, ErrEmptyCommand) {
		t.Errorf("expected ErrEmptyCommand for blank command, got %v", err)
	}
}
