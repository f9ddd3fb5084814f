package components

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/leofalp/aigoflow/flow"
	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/embedding"
	"github.com/leofalp/aigoflow/providers/store"
)

// scriptedProvider returns its responses in order, then repeats the last
// one, recording every request it receives.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*ai.ChatResponse
	requests  []ai.ChatRequest
	err       error
}

var _ ai.Provider = (*scriptedProvider)(nil)

func newScriptedProvider(responses ...*ai.ChatResponse) *scriptedProvider {
	return &scriptedProvider{responses: responses}
}

func (provider *scriptedProvider) SendMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	provider.requests = append(provider.requests, request)
	if provider.err != nil {
		return nil, provider.err
	}
	if len(provider.responses) == 0 {
		return &ai.ChatResponse{Content: "done"}, nil
	}
	response := provider.responses[0]
	if len(provider.responses) > 1 {
		provider.responses = provider.responses[1:]
	}
	return response, nil
}

func (provider *scriptedProvider) IsStopMessage(response *ai.ChatResponse) bool {
	return len(response.ToolCalls) == 0
}

func (provider *scriptedProvider) recorded() []ai.ChatRequest {
	provider.mu.Lock()
	defer provider.mu.Unlock()
	return append([]ai.ChatRequest(nil), provider.requests...)
}

// streamingProvider streams chunks as content events.
type streamingProvider struct {
	scriptedProvider
	chunks []string
}

var _ ai.StreamProvider = (*streamingProvider)(nil)

func (provider *streamingProvider) StreamMessage(_ context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	provider.mu.Lock()
	provider.requests = append(provider.requests, request)
	provider.mu.Unlock()

	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		for _, chunk := range provider.chunks {
			if !yield(ai.StreamEvent{Type: ai.StreamEventContent, Content: chunk}, nil) {
				return
			}
		}
		yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: "stop"}, nil)
	}), nil
}

func toolCall(id, name, arguments string) ai.ToolCall {
	return ai.ToolCall{
		ID:       id,
		Type:     "function",
		Function: ai.ToolCallFunction{Name: name, Arguments: arguments},
	}
}

// seededStore returns a memory store holding texts embedded with embedder.
func seededStore(testingHelper *testing.T, embedder embedding.Embedder, texts ...string) store.Store {
	testingHelper.Helper()
	vectors, err := embedder.Embed(context.Background(), texts)
	if err != nil {
		testingHelper.Fatalf("embed: %v", err)
	}

	memory := store.NewMemory()
	documents := make([]store.Document, len(texts))
	for index, text := range texts {
		documents[index] = store.Document{Content: text, Embedding: vectors[index]}
	}
	if _, err := memory.Put(context.Background(), documents...); err != nil {
		testingHelper.Fatalf("put: %v", err)
	}
	return memory
}

func mustBuild(testingHelper *testing.T, builder *flow.GraphBuilder) *flow.Graph {
	testingHelper.Helper()
	graph, err := builder.Build()
	if err != nil {
		testingHelper.Fatalf("build error: %v", err)
	}
	return graph
}

func mustRun(testingHelper *testing.T, graph *flow.Graph, input any, opts ...flow.RunOption) *flow.RunResult {
	testingHelper.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := graph.Run(ctx, input, opts...)
	if err != nil {
		testingHelper.Fatalf("run error: %v", err)
	}
	return result
}

func assertState(testingHelper *testing.T, result *flow.RunResult, nodeID string, expected flow.NodeState) flow.NodeExecutionRecord {
	testingHelper.Helper()
	record, exists := result.Node(nodeID)
	if !exists {
		testingHelper.Fatalf("no record for node %q", nodeID)
	}
	if record.State != expected {
		testingHelper.Errorf("node %q: expected state %s, got %s (err: %v)", nodeID, expected, record.State, record.Err)
	}
	return record
}
