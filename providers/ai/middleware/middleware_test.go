package middleware

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/observability"
)

// ========== Helpers ==========

// slowProvider answers after delay unless the context ends first.
type slowProvider struct {
	delay time.Duration
}

func (provider slowProvider) SendMessage(ctx context.Context, _ ai.ChatRequest) (*ai.ChatResponse, error) {
	select {
	case <-time.After(provider.delay):
		return &ai.ChatResponse{Content: "ok", FinishReason: "stop", Usage: &ai.Usage{TotalTokens: 3}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (provider slowProvider) IsStopMessage(message *ai.ChatResponse) bool {
	return len(message.ToolCalls) == 0
}

// slowStreamProvider yields one chunk after delay.
type slowStreamProvider struct {
	slowProvider
}

func (provider slowStreamProvider) StreamMessage(ctx context.Context, _ ai.ChatRequest) (*ai.ChatStream, error) {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		select {
		case <-time.After(provider.delay):
			if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: "hello"}, nil) {
				return
			}
			yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: "stop"}, nil)
		case <-ctx.Done():
			yield(ai.StreamEvent{}, ctx.Err())
		}
	}), nil
}

type logEntry struct {
	level   string
	message string
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (logger *recordingLogger) record(level, message string) {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	logger.entries = append(logger.entries, logEntry{level: level, message: message})
}

func (logger *recordingLogger) Trace(_ context.Context, msg string, _ ...observability.Attribute) {
	logger.record("trace", msg)
}
func (logger *recordingLogger) Debug(_ context.Context, msg string, _ ...observability.Attribute) {
	logger.record("debug", msg)
}
func (logger *recordingLogger) Info(_ context.Context, msg string, _ ...observability.Attribute) {
	logger.record("info", msg)
}
func (logger *recordingLogger) Warn(_ context.Context, msg string, _ ...observability.Attribute) {
	logger.record("warn", msg)
}
func (logger *recordingLogger) Error(_ context.Context, msg string, _ ...observability.Attribute) {
	logger.record("error", msg)
}

func (logger *recordingLogger) messages() []string {
	logger.mu.Lock()
	defer logger.mu.Unlock()
	messages := make([]string, 0, len(logger.entries))
	for _, entry := range logger.entries {
		messages = append(messages, entry.message)
	}
	return messages
}

// ========== Wrap ==========

func TestWrap_PreservesStreamingCapability(testCase *testing.T) {
	plain := Wrap(slowProvider{}, NewTimeout(time.Second))
	if _, streams := plain.(ai.StreamProvider); streams {
		testCase.Errorf("a non-streaming provider must not gain StreamMessage")
	}

	streaming := Wrap(slowStreamProvider{}, NewTimeout(time.Second))
	if _, streams := streaming.(ai.StreamProvider); !streams {
		testCase.Errorf("a streaming provider must keep StreamMessage")
	}

	if unwrapped := Wrap(slowProvider{}); unwrapped != (slowProvider{}) {
		testCase.Errorf("no configs must return the provider itself")
	}
}

func TestWrap_AppliesOutermostFirst(testCase *testing.T) {
	var order []string
	tracing := func(name string) Config {
		return Config{Send: func(next SendFunc) SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				order = append(order, name+" in")
				response, err := next(ctx, request)
				order = append(order, name+" out")
				return response, err
			}
		}}
	}

	provider := Wrap(slowProvider{}, tracing("first"), tracing("second"))
	if _, err := provider.SendMessage(context.Background(), ai.ChatRequest{}); err != nil {
		testCase.Fatalf("send: %v", err)
	}

	expected := []string{"first in", "second in", "second out", "first out"}
	if !slices.Equal(order, expected) {
		testCase.Errorf("expected %v, got %v", expected, order)
	}
}

// ========== Timeout ==========

func TestTimeout_SendCompletesBeforeDeadline(testCase *testing.T) {
	provider := Wrap(slowProvider{}, NewTimeout(100*time.Millisecond))

	response, err := provider.SendMessage(context.Background(), ai.ChatRequest{})
	if err != nil || response.Content != "ok" {
		testCase.Fatalf("unexpected response %v (%v)", response, err)
	}
}

func TestTimeout_SendExceedsDeadline(testCase *testing.T) {
	provider := Wrap(slowProvider{delay: 200 * time.Millisecond}, NewTimeout(20*time.Millisecond))

	_, err := provider.SendMessage(context.Background(), ai.ChatRequest{})
	if !errors.Is(err, context.DeadlineExceeded) {
		testCase.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestTimeout_CoversWholeStream(testCase *testing.T) {
	provider := Wrap(slowStreamProvider{slowProvider{delay: 200 * time.Millisecond}}, NewTimeout(20*time.Millisecond))

	stream, err := provider.(ai.StreamProvider).StreamMessage(context.Background(), ai.ChatRequest{})
	if err != nil {
		testCase.Fatalf("stream: %v", err)
	}
	if _, err := stream.Collect(); !errors.Is(err, context.DeadlineExceeded) {
		testCase.Errorf("expected the deadline to end the stream, got %v", err)
	}
}

// ========== Logging ==========

func TestLogging_SendAndStream(testCase *testing.T) {
	logger := &recordingLogger{}
	provider := Wrap(slowStreamProvider{}, NewLogging(logger, LogLevelVerbose))

	if _, err := provider.SendMessage(context.Background(), ai.ChatRequest{Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}}}); err != nil {
		testCase.Fatalf("send: %v", err)
	}

	stream, err := provider.(ai.StreamProvider).StreamMessage(context.Background(), ai.ChatRequest{})
	if err != nil {
		testCase.Fatalf("stream: %v", err)
	}
	response, err := stream.Collect()
	if err != nil || response.Content != "hello" {
		testCase.Fatalf("unexpected stream result %v (%v)", response, err)
	}

	expected := []string{"llm send", "llm send completed", "llm stream", "llm stream completed"}
	if messages := logger.messages(); !slices.Equal(messages, expected) {
		testCase.Errorf("expected %v, got %v", expected, messages)
	}
}

func TestLogging_Failure(testCase *testing.T) {
	logger := &recordingLogger{}
	provider := Wrap(slowProvider{delay: time.Second}, NewTimeout(10*time.Millisecond), NewLogging(logger, LogLevelMinimal))

	if _, err := provider.SendMessage(context.Background(), ai.ChatRequest{}); err == nil {
		testCase.Fatalf("expected the deadline to fail the send")
	}
	if messages := logger.messages(); !slices.Contains(messages, "llm send failed") {
		testCase.Errorf("expected a failure entry, got %v", messages)
	}
}
