package linter

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Encode converts text into the named charset ("utf-8", "ISO-8859-15",
// "windows-1252", ...). An empty name means UTF-8.
func Encode(text, charset string) ([]byte, error) {
	charset = strings.TrimSpace(charset)
	if charset == "" {
		return []byte(text), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, charset)
	}
	if enc == unicode.UTF8 {
		return []byte(text), nil
	}

	encoded, err := enc.NewEncoder().String(text)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot as %s: %w", charset, err)
	}
	return []byte(encoded), nil
}
