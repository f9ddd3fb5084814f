package slogobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/leofalp/aigoflow/core/config"
	"github.com/leofalp/aigoflow/providers/observability"
)

func TestObserver_TextLogging(testCase *testing.T) {
	var buffer bytes.Buffer
	observer := New(WithOutput(&buffer), WithLevel(slog.LevelInfo))

	observer.Info(context.Background(), "node completed", observability.String(observability.AttrNodeID, "search"))
	observer.Debug(context.Background(), "hidden at info level")

	output := buffer.String()
	if !strings.Contains(output, "node completed") || !strings.Contains(output, "flow.node.id=search") {
		testCase.Errorf("expected info line with node id, got %q", output)
	}
	if strings.Contains(output, "hidden at info level") {
		testCase.Errorf("expected debug line to be filtered, got %q", output)
	}
}

func TestObserver_StringListAttribute(testCase *testing.T) {
	var buffer bytes.Buffer
	observer := New(WithOutput(&buffer), WithLevel(slog.LevelDebug))

	observer.Debug(context.Background(), "node ready",
		observability.Strings(observability.AttrNodeDependencies, []string{"fetch", "parse"}))

	if !strings.Contains(buffer.String(), "[fetch parse]") {
		testCase.Errorf("expected the dependency list in the line, got %q", buffer.String())
	}
}

func TestObserver_JSONFormatFromConfig(testCase *testing.T) {
	var buffer bytes.Buffer
	observer := New(
		WithOutput(&buffer),
		WithConfig(config.Values{config.KeyLogFormat: "json", config.KeyLogLevel: "debug"}),
	)

	observer.Debug(context.Background(), "debug visible")

	if !strings.HasPrefix(strings.TrimSpace(buffer.String()), "{") {
		testCase.Errorf("expected JSON output, got %q", buffer.String())
	}
	if !strings.Contains(buffer.String(), "debug visible") {
		testCase.Errorf("expected debug line, got %q", buffer.String())
	}
}

func TestObserver_SpanLifecycle(testCase *testing.T) {
	var buffer bytes.Buffer
	observer := New(WithOutput(&buffer), WithLevel(slog.LevelDebug))

	ctx, span := observer.StartSpan(context.Background(), observability.SpanRun)
	if observability.SpanFromContext(ctx) != span {
		testCase.Errorf("expected span to be attached to the returned context")
	}

	span.SetAttributes(observability.String(observability.AttrRunID, "run-1"))
	span.RecordError(errors.New("boom"))
	span.SetStatus(observability.StatusError, "failed")
	span.End()

	output := buffer.String()
	for _, expected := range []string{"span started", "span error", "span ended", "run-1", "status=error"} {
		if !strings.Contains(output, expected) {
			testCase.Errorf("expected %q in output, got %q", expected, output)
		}
	}
}

func TestObserver_CounterAccumulates(testCase *testing.T) {
	observer := New(WithOutput(&bytes.Buffer{}))

	observer.Counter(observability.MetricNodeCount).Add(context.Background(), 2)
	observer.Counter(observability.MetricNodeCount).Add(context.Background(), 3)
	observer.Histogram(observability.MetricNodeDuration).Record(context.Background(), 0.5)

	if value := observer.CounterValue(observability.MetricNodeCount); value != 5 {
		testCase.Errorf("expected counter value 5, got %d", value)
	}
}

func TestParseLevel(testCase *testing.T) {
	cases := map[string]slog.Level{
		"trace":   LevelTrace,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"unknown": slog.LevelInfo,
	}
	for name, expected := range cases {
		if level := ParseLevel(name); level != expected {
			testCase.Errorf("ParseLevel(%q): expected %v, got %v", name, expected, level)
		}
	}
}
