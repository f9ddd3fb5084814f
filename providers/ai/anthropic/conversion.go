package anthropic

import (
	"fmt"
	"strings"
	"time"

	"github.com/leofalp/aigoflow/internal/jsonx"
	"github.com/leofalp/aigoflow/providers/ai"
)

const defaultMaxTokens = 4096

var emptyInputSchema = jsonx.RawMessage(`{"type":"object","properties":{}}`)

func (provider *AnthropicProvider) toMessagesRequest(request ai.ChatRequest) (messagesRequest, error) {
	converted := messagesRequest{
		Model:     request.Model,
		Messages:  buildMessages(request.Messages),
		System:    request.SystemPrompt,
		MaxTokens: defaultMaxTokens,
	}
	if converted.Model == "" {
		converted.Model = provider.model
	}

	if generation := request.GenerationConfig; generation != nil {
		if generation.MaxTokens > 0 {
			converted.MaxTokens = generation.MaxTokens
		}
		if generation.Temperature > 0 {
			temperature := float64(generation.Temperature)
			converted.Temperature = &temperature
		}
	}

	for _, description := range request.Tools {
		inputSchema := emptyInputSchema
		if description.Parameters != nil {
			encoded, err := jsonx.Marshal(description.Parameters)
			if err != nil {
				return messagesRequest{}, fmt.Errorf("encoding schema of tool %q: %w", description.Name, err)
			}
			inputSchema = encoded
		}
		converted.Tools = append(converted.Tools, tool{
			Name:        description.Name,
			Description: description.Description,
			InputSchema: inputSchema,
		})
	}
	return converted, nil
}

// buildMessages maps the conversation onto user and assistant turns. Tool
// results become tool_result blocks of a user turn; consecutive results share
// one turn. System messages inside the conversation are sent as user text.
func buildMessages(messages []ai.Message) []message {
	var converted []message

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleAssistant:
			assistant := message{Role: "assistant"}
			if msg.Content != "" {
				assistant.Content = append(assistant.Content, contentBlock{Type: "text", Text: msg.Content})
			}
			for _, toolCall := range msg.ToolCalls {
				input := jsonx.RawMessage(toolCall.Function.Arguments)
				if len(input) == 0 {
					input = jsonx.RawMessage(`{}`)
				}
				assistant.Content = append(assistant.Content, contentBlock{
					Type:  "tool_use",
					ID:    toolCall.ID,
					Name:  toolCall.Function.Name,
					Input: input,
				})
			}
			if len(assistant.Content) > 0 {
				converted = append(converted, assistant)
			}

		case ai.RoleTool:
			result := contentBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: msg.Content}
			if last := len(converted) - 1; last >= 0 && isToolResultTurn(converted[last]) {
				converted[last].Content = append(converted[last].Content, result)
				continue
			}
			converted = append(converted, message{Role: "user", Content: []contentBlock{result}})

		default:
			converted = append(converted, message{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: msg.Content}},
			})
		}
	}
	return converted
}

func isToolResultTurn(turn message) bool {
	if turn.Role != "user" || len(turn.Content) == 0 {
		return false
	}
	for _, block := range turn.Content {
		if block.Type != "tool_result" {
			return false
		}
	}
	return true
}

func fromMessagesResponse(response messagesResponse) *ai.ChatResponse {
	converted := &ai.ChatResponse{
		Id:           response.ID,
		Model:        response.Model,
		Created:      time.Now().Unix(),
		FinishReason: mapStopReason(response.StopReason),
		Usage: &ai.Usage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
			TotalTokens:      response.Usage.InputTokens + response.Usage.OutputTokens,
		},
	}

	var textParts []string
	for _, block := range response.Content {
		switch block.Type {
		case "text":
			textParts = append(textParts, block.Text)
		case "tool_use":
			converted.ToolCalls = append(converted.ToolCalls, ai.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: ai.ToolCallFunction{
					Name:      block.Name,
					Arguments: string(block.Input),
				},
			})
		}
	}
	converted.Content = strings.Join(textParts, "\n")
	return converted
}

// mapStopReason translates Anthropic stop reasons to the OpenAI vocabulary
// used by ai.ChatResponse.
func mapStopReason(stopReason string) string {
	switch stopReason {
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	default:
		return "stop"
	}
}
