package utils

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
)

var ErrUnsupportedScheme = errors.New("unsupported URI scheme")

// UriToPath turns a file:// URI into a local path. Percent escapes are
// decoded.
func UriToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parsing uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, uri)
	}
	return filepath.FromSlash(u.Path), nil
}

// PathToURI is the inverse of UriToPath. Relative paths are made absolute
// first, documents are identified by absolute URIs only.
func PathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	uri := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return uri.String()
}
