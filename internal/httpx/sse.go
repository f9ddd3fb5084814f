package httpx

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize bounds a single event line (1 MB). Longer lines make Next
// fail with a wrapped bufio.ErrTooLong.
const maxSSELineSize = 1 * 1024 * 1024

// SSEScanner reads Server-Sent Events data payloads from a reader.
type SSEScanner struct {
	scanner *bufio.Scanner
}

func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next data payload. Consecutive data lines of one event
// are joined with newlines; comments and other fields are skipped. It
// returns io.EOF at the end of the input or on a "[DONE]" sentinel.
func (sseScanner *SSEScanner) Next() (string, error) {
	var dataLines []string

	for sseScanner.scanner.Scan() {
		line := sseScanner.scanner.Text()

		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if data, isData := strings.CutPrefix(line, "data:"); isData {
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
		}
	}

	if err := sseScanner.scanner.Err(); err != nil {
		return "", fmt.Errorf("SSE scanner error: %w", err)
	}
	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}
