package openai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leofalp/aigoflow/core/config"
	"github.com/leofalp/aigoflow/internal/jsonschema"
	"github.com/leofalp/aigoflow/internal/jsonx"
	"github.com/leofalp/aigoflow/providers/ai"
)

const toolCallResponse = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "tool_calls",
    "message": {
      "role": "assistant",
      "content": "",
      "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "search", "arguments": "{\"query\":\"go\"}"}}]
    }
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestSendMessage_ToolCallRoundTrip(testCase *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/v1/chat/completions" {
			testCase.Errorf("unexpected path %s", request.URL.Path)
		}
		if auth := request.Header.Get("Authorization"); auth != "Bearer test-key" {
			testCase.Errorf("unexpected authorization header %q", auth)
		}
		body, _ := io.ReadAll(request.Body)
		if err := jsonx.Unmarshal(body, &received); err != nil {
			testCase.Errorf("invalid request body: %v", err)
		}
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(toolCallResponse))
	}))
	defer server.Close()

	provider := New().WithAPIKey("test-key").WithBaseURL(server.URL + "/v1")
	response, err := provider.SendMessage(context.Background(), ai.ChatRequest{
		SystemPrompt: "be brief",
		Messages:     []ai.Message{{Role: ai.RoleUser, Content: "find go"}},
		Tools: []ai.ToolDescription{{
			Name:        "search",
			Description: "Search documents",
			Parameters:  jsonschema.NewObject("").Property("query", &jsonschema.Schema{Type: jsonschema.TypeString}, true).Build(),
		}},
	})
	if err != nil {
		testCase.Fatalf("unexpected error: %v", err)
	}

	if received["model"] != defaultModel {
		testCase.Errorf("expected default model, got %v", received["model"])
	}
	messages, _ := received["messages"].([]any)
	if len(messages) != 2 {
		testCase.Fatalf("expected system and user messages, got %d", len(messages))
	}
	tools, _ := received["tools"].([]any)
	if len(tools) != 1 {
		testCase.Fatalf("expected one tool, got %d", len(tools))
	}

	if provider.IsStopMessage(response) {
		testCase.Errorf("expected tool call response not to be a stop message")
	}
	if len(response.ToolCalls) != 1 || response.ToolCalls[0].Function.Arguments != `{"query":"go"}` {
		testCase.Errorf("unexpected tool calls %+v", response.ToolCalls)
	}
	if response.Usage.TotalTokens != 15 {
		testCase.Errorf("expected usage 15, got %d", response.Usage.TotalTokens)
	}
}

func TestSendMessage_MissingAPIKey(testCase *testing.T) {
	_, err := New().SendMessage(context.Background(), ai.ChatRequest{})
	if err == nil {
		testCase.Fatal("expected error without API key")
	}
}

func TestStreamMessage_YieldsDeltas(testCase *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		for _, word := range []string{"Hel", "lo"} {
			fmt.Fprintf(writer, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", word)
		}
		fmt.Fprint(writer, "data: {\"id\":\"1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(writer, "data: [DONE]\n\n")
	}))
	defer server.Close()

	provider := New().WithAPIKey("test-key").WithBaseURL(server.URL + "/v1")
	stream, err := provider.StreamMessage(context.Background(), ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: "hi"}},
	})
	if err != nil {
		testCase.Fatalf("unexpected error: %v", err)
	}

	response, err := stream.Collect()
	if err != nil {
		testCase.Fatalf("unexpected stream error: %v", err)
	}
	if response.Content != "Hello" {
		testCase.Errorf("expected Hello, got %q", response.Content)
	}
	if response.FinishReason != "stop" {
		testCase.Errorf("expected finish reason stop, got %q", response.FinishReason)
	}
}

func TestFromConfig(testCase *testing.T) {
	provider := FromConfig(config.Values{
		config.KeyInferenceAPIKey: "local",
		config.KeyInferenceURL:    "http://localhost:8000/v1",
		config.KeyChatModel:       "llama3",
	}, config.KeyInferenceAPIKey, config.KeyInferenceURL)

	if provider.apiKey != "local" || !strings.HasPrefix(provider.baseURL, "http://localhost:8000") {
		testCase.Errorf("unexpected provider settings %+v", provider)
	}
	if provider.Model() != "llama3" {
		testCase.Errorf("expected model llama3, got %s", provider.Model())
	}
}
