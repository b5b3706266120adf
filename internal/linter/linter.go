package linter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"unicode/utf8"

	"mvdan.cc/sh/v3/shell"
)

var (
	ErrEmptyCommand      = errors.New("linter command is empty")
	ErrUnknownEncoding   = errors.New("unknown document encoding")
	ErrUndecodableOutput = errors.New("linter output is not valid UTF-8")
)

type Options struct {
	Command []string
	TempDir string // "" uses os.TempDir()
	Suffix  string // appended to the snapshot file name, e.g. ".py"
}

// Snapshot is a copy of a document taken when the analysis was triggered.
type Snapshot struct {
	URI        string
	Text       string
	Encoding   string
	Generation uint64
}

type Linter struct {
	options Options
	logger  *slog.Logger
}

func New(options Options, logger *slog.Logger) (*Linter, error) {
	if len(options.Command) == 0 || options.Command[0] == "" {
		return nil, ErrEmptyCommand
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Linter{options: options, logger: logger}, nil
}

// SplitCommand splits a command line the way a POSIX shell would. Parameters
// such as $HOME are expanded from the environment.
func SplitCommand(commandLine string) ([]string, error) {
	fields, err := shell.Fields(commandLine, os.Getenv)
	if err != nil {
		return nil, fmt.Errorf("parsing linter command %q: %w", commandLine, err)
	}
	if len(fields) == 0 {
		return nil, ErrEmptyCommand
	}
	return fields, nil
}

func (l *Linter) Command() []string {
	return append([]string(nil), l.options.Command...)
}

// Run writes the snapshot to its own temporary file, runs the linter against
// it and returns stdout, or stderr when stdout is empty. The exit code is not
// inspected: flake8 exits non-zero whenever it reports something.
func (l *Linter) Run(ctx context.Context, snapshot Snapshot) ([]byte, error) {
	path, err := l.writeSnapshot(snapshot)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			l.logger.Warn("Could not remove snapshot file", "path", path, "err", err)
		}
	}()

	args := append(l.Command()[1:], path)
	cmd := exec.CommandContext(ctx, l.options.Command[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("running %s: %w", l.options.Command[0], err)
	}

	output := stdout.Bytes()
	if len(output) == 0 {
		output = stderr.Bytes()
	}
	l.logger.Debug("Linter finished",
		"uri", snapshot.URI,
		"generation", snapshot.Generation,
		"stdout", stdout.Len(),
		"stderr", stderr.Len(),
	)

	if !utf8.Valid(output) {
		return nil, ErrUndecodableOutput
	}
	return output, nil
}

func (l *Linter) writeSnapshot(snapshot Snapshot) (string, error) {
	content, err := Encode(snapshot.Text, snapshot.Encoding)
	if err != nil {
		return "", err
	}

	pattern := fmt.Sprintf("lintgutter-%d-*%s", snapshot.Generation, l.options.Suffix)
	file, err := os.CreateTemp(l.options.TempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("creating snapshot file: %w", err)
	}

	if _, err := file.Write(content); err != nil {
		file.Close()
		os.Remove(file.Name())
		return "", fmt.Errorf("writing snapshot file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(file.Name())
		return "", fmt.Errorf("closing snapshot file: %w", err)
	}
	return file.Name(), nil
}
