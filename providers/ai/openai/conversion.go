package openai

import (
	goopenai "github.com/sashabaranov/go-openai"

	"github.com/leofalp/aigoflow/providers/ai"
)

func (provider *OpenAIProvider) toChatCompletion(request ai.ChatRequest) goopenai.ChatCompletionRequest {
	model := request.Model
	if model == "" {
		model = provider.model
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(request.Messages)+1)
	if request.SystemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    goopenai.ChatMessageRoleSystem,
			Content: request.SystemPrompt,
		})
	}
	for _, message := range request.Messages {
		messages = append(messages, toChatMessage(message))
	}

	completionRequest := goopenai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}

	for _, description := range request.Tools {
		definition := &goopenai.FunctionDefinition{
			Name:        description.Name,
			Description: description.Description,
		}
		if description.Parameters != nil {
			definition.Parameters = description.Parameters
		}
		completionRequest.Tools = append(completionRequest.Tools, goopenai.Tool{
			Type:     goopenai.ToolTypeFunction,
			Function: definition,
		})
	}

	if request.GenerationConfig != nil {
		completionRequest.MaxTokens = request.GenerationConfig.MaxTokens
		completionRequest.Temperature = request.GenerationConfig.Temperature
	}

	return completionRequest
}

func toChatMessage(message ai.Message) goopenai.ChatCompletionMessage {
	converted := goopenai.ChatCompletionMessage{
		Role:       string(message.Role),
		Content:    message.Content,
		ToolCallID: message.ToolCallID,
		Name:       message.Name,
	}
	for _, call := range message.ToolCalls {
		converted.ToolCalls = append(converted.ToolCalls, goopenai.ToolCall{
			ID:   call.ID,
			Type: goopenai.ToolTypeFunction,
			Function: goopenai.FunctionCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}
	return converted
}

func fromChatCompletion(response goopenai.ChatCompletionResponse) *ai.ChatResponse {
	choice := response.Choices[0]

	converted := &ai.ChatResponse{
		Id:           response.ID,
		Model:        response.Model,
		Created:      response.Created,
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Usage: &ai.Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		},
	}
	for _, call := range choice.Message.ToolCalls {
		converted.ToolCalls = append(converted.ToolCalls, ai.ToolCall{
			ID:   call.ID,
			Type: "function",
			Function: ai.ToolCallFunction{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}
	return converted
}

func streamChunkEvents(chunk goopenai.ChatCompletionStreamResponse) []ai.StreamEvent {
	var events []ai.StreamEvent
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			events = append(events, ai.StreamEvent{Type: ai.StreamEventContent, Content: choice.Delta.Content})
		}
		for position, call := range choice.Delta.ToolCalls {
			index := position
			if call.Index != nil {
				index = *call.Index
			}
			events = append(events, ai.StreamEvent{
				Type: ai.StreamEventToolCall,
				ToolCall: &ai.ToolCallDelta{
					Index:     index,
					ID:        call.ID,
					Name:      call.Function.Name,
					Arguments: call.Function.Arguments,
				},
			})
		}
	}
	if chunk.Usage != nil {
		events = append(events, ai.StreamEvent{
			Type: ai.StreamEventUsage,
			Usage: &ai.Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalTokens:      chunk.Usage.TotalTokens,
			},
		})
	}
	return events
}
