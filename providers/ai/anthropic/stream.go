package anthropic

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/leofalp/aigoflow/internal/httpx"
	"github.com/leofalp/aigoflow/internal/jsonx"
	"github.com/leofalp/aigoflow/providers/ai"
)

// StreamMessage implements ai.StreamProvider. The returned stream owns the
// HTTP response and closes it when iteration ends or is abandoned.
func (provider *AnthropicProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if provider.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	messagesReq, err := provider.toMessagesRequest(request)
	if err != nil {
		return nil, fmt.Errorf("failed to build messages request: %w", err)
	}
	messagesReq.Stream = true
	provider.annotate(ctx, messagesReq.Model)

	response, err := httpx.PostStream(ctx, provider.httpClient, provider.baseURL+messagesEndpoint, messagesReq, provider.headers()...)
	if err != nil {
		return nil, fmt.Errorf("messages stream failed: %w", err)
	}

	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer httpx.CloseWithLog(response.Body)

		scanner := httpx.NewSSEScanner(response.Body)
		// Tool call indices count tool_use blocks only; text blocks share
		// the content index space upstream.
		toolCallIndex := -1
		inputTokens := 0
		finishReason := ""

		for {
			payload, scanErr := scanner.Next()
			if errors.Is(scanErr, io.EOF) {
				yield(ai.StreamEvent{}, fmt.Errorf("stream ended before message_stop"))
				return
			}
			if scanErr != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("reading messages stream: %w", scanErr))
				return
			}

			var event streamEvent
			if err := jsonx.Unmarshal([]byte(payload), &event); err != nil {
				yield(ai.StreamEvent{}, fmt.Errorf("failed to parse stream event: %w", err))
				return
			}

			var emitted *ai.StreamEvent
			switch event.Type {
			case "message_start":
				if event.Message != nil {
					inputTokens = event.Message.Usage.InputTokens
				}

			case "content_block_start":
				if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
					toolCallIndex++
					emitted = &ai.StreamEvent{Type: ai.StreamEventToolCall, ToolCall: &ai.ToolCallDelta{
						Index: toolCallIndex,
						ID:    event.ContentBlock.ID,
						Name:  event.ContentBlock.Name,
					}}
				}

			case "content_block_delta":
				if event.Delta == nil {
					continue
				}
				switch {
				case event.Delta.Type == "text_delta" && event.Delta.Text != "":
					emitted = &ai.StreamEvent{Type: ai.StreamEventContent, Content: event.Delta.Text}
				case event.Delta.Type == "input_json_delta" && event.Delta.PartialJSON != "" && toolCallIndex >= 0:
					emitted = &ai.StreamEvent{Type: ai.StreamEventToolCall, ToolCall: &ai.ToolCallDelta{
						Index:     toolCallIndex,
						Arguments: event.Delta.PartialJSON,
					}}
				}

			case "message_delta":
				if event.Delta != nil && event.Delta.StopReason != "" {
					finishReason = event.Delta.StopReason
				}
				if event.Usage != nil {
					emitted = &ai.StreamEvent{Type: ai.StreamEventUsage, Usage: &ai.Usage{
						PromptTokens:     inputTokens,
						CompletionTokens: event.Usage.OutputTokens,
						TotalTokens:      inputTokens + event.Usage.OutputTokens,
					}}
				}

			case "message_stop":
				yield(ai.StreamEvent{Type: ai.StreamEventDone, FinishReason: mapStopReason(finishReason)}, nil)
				return

			case "error":
				errMessage := "unknown stream error"
				if event.Error != nil {
					errMessage = event.Error.Message
				}
				yield(ai.StreamEvent{}, fmt.Errorf("anthropic stream error: %s", errMessage))
				return
			}

			if emitted != nil && !yield(*emitted, nil) {
				return
			}
		}
	}), nil
}
