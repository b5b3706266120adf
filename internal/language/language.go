package language

import (
	"io/fs"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/fileutil"
)

const (
	Python = "python"
	Shell  = "sh"
)

// Matches reports whether the language an editor declared for a document is
// the one a linter analyzes. Names compare case-insensitively, so "Python"
// matches "python".
func Matches(declared, want string) bool {
	declared = strings.TrimSpace(declared)
	if declared == "" || want == "" {
		return false
	}
	return strings.EqualFold(declared, want)
}

// Detect guesses a document's language from its path and contents, for hosts
// whose editor does not declare one. It returns "" when unsure.
func Detect(path, text string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py", ".pyw", ".pyi":
		return Python
	}

	firstLine, _, _ := strings.Cut(text, "\n")
	if strings.HasPrefix(firstLine, "#!") && strings.Contains(firstLine, "python") {
		return Python
	}

	switch fileutil.CouldBeScript2(fileEntry(filepath.Base(path))) {
	case fileutil.ConfIsScript:
		return Shell
	case fileutil.ConfIfShebang:
		if fileutil.HasShebang([]byte(text)) {
			return Shell
		}
	}
	return ""
}

// fileEntry lets fileutil judge a name without touching the filesystem.
type fileEntry string

func (e fileEntry) Name() string               { return string(e) }
func (e fileEntry) IsDir() bool                { return false }
func (e fileEntry) Type() fs.FileMode          { return 0 }
func (e fileEntry) Info() (fs.FileInfo, error) { return nil, fs.ErrNotExist }
