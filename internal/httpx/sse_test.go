package httpx

import (
	"bufio"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestSSEScanner(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "single event", input: "data: hello\n\n", expected: []string{"hello"}},
		{name: "events in order", input: "data: first\n\ndata: second\n\n", expected: []string{"first", "second"}},
		{name: "multi-line data joined", input: "data: a\ndata: b\n\n", expected: []string{"a\nb"}},
		{name: "comments and event fields skipped", input: ": ping\nevent: message_start\ndata: {}\n\n", expected: []string{"{}"}},
		{name: "done sentinel stops", input: "data: x\n\ndata: [DONE]\n\ndata: never\n\n", expected: []string{"x"}},
		{name: "trailing data without blank line", input: "data: tail", expected: []string{"tail"}},
		{name: "empty input", input: "", expected: nil},
	}

	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			scanner := NewSSEScanner(strings.NewReader(testCase.input))
			for _, expected := range testCase.expected {
				payload, err := scanner.Next()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if payload != expected {
					t.Errorf("expected %q, got %q", expected, payload)
				}
			}
			if _, err := scanner.Next(); err != io.EOF {
				t.Errorf("expected io.EOF, got %v", err)
			}
		})
	}
}

func TestSSEScanner_LineTooLong(t *testing.T) {
	input := "data: " + strings.Repeat("x", maxSSELineSize+1) + "\n\n"
	scanner := NewSSEScanner(strings.NewReader(input))

	_, err := scanner.Next()
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("expected bufio.ErrTooLong, got %v", err)
	}
}
