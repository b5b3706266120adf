package lsp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrMissingContentLength = errors.New("missing Content-Length header")

const headerSeparator = "\r\n\r\n"

type baseMessage struct {
	Method string `json:"method"`
}

func EncodeMessage(msg any) string {
	content, err := json.Marshal(msg)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("Content-Length: %d%s%s", len(content), headerSeparator, content)
}

// DecodeMessage splits a framed message into its method and JSON body.
func DecodeMessage(msg []byte) (string, []byte, error) {
	header, content, found := bytes.Cut(msg, []byte(headerSeparator))
	if !found {
		return "", nil, errors.New("did not find header separator")
	}

	contentLength, err := parseContentLength(header)
	if err != nil {
		return "", nil, err
	}
	if contentLength > len(content) {
		return "", nil, fmt.Errorf("content shorter than Content-Length %d", contentLength)
	}
	content = content[:contentLength]

	var base baseMessage
	if err := json.Unmarshal(content, &base); err != nil {
		return "", nil, fmt.Errorf("decoding message: %w", err)
	}
	return base.Method, content, nil
}

// Split is a bufio.SplitFunc that yields one framed message at a time.
func Split(data []byte, _ bool) (advance int, token []byte, err error) {
	header, content, found := bytes.Cut(data, []byte(headerSeparator))
	if !found {
		return 0, nil, nil
	}

	contentLength, err := parseContentLength(header)
	if err != nil {
		return 0, nil, err
	}
	if len(content) < contentLength {
		return 0, nil, nil
	}

	totalLength := len(header) + len(headerSeparator) + contentLength
	return totalLength, data[:totalLength], nil
}

func parseContentLength(header []byte) (int, error) {
	for line := range strings.SplitSeq(string(header), "\r\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(name), "Content-Length") {
			continue
		}
		length, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("invalid Content-Length: %w", err)
		}
		return length, nil
	}
	return 0, ErrMissingContentLength
}
