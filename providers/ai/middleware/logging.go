package middleware

import (
	"context"
	"time"

	"github.com/leofalp/aigoflow/providers/ai"
	"github.com/leofalp/aigoflow/providers/observability"
)

// LogLevel controls how much detail the logging middleware emits per request.
type LogLevel int

const (
	// LogLevelMinimal logs the model, duration and token counts.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds the message count and finish reason.
	LogLevelStandard

	// LogLevelVerbose adds the first message and the response content, each
	// truncated. It logs raw prompt text and is meant for local debugging.
	LogLevelVerbose
)

// NewLogging logs every provider call through logger. For streams the
// completion entry is written once the stream ends.
func NewLogging(logger observability.Logger, level LogLevel) Config {
	return Config{
		Send: func(next SendFunc) SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				logger.Info(ctx, "llm send", requestAttributes(request, level)...)

				start := time.Now()
				response, err := next(ctx, request)
				if err != nil {
					logger.Error(ctx, "llm send failed",
						observability.String(observability.AttrLLMModel, request.Model),
						observability.Duration(observability.AttrDuration, time.Since(start)),
						observability.Error(err),
					)
					return nil, err
				}

				logger.Info(ctx, "llm send completed", responseAttributes(response, time.Since(start), level)...)
				return response, nil
			}
		},
		Stream: func(next StreamFunc) StreamFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
				logger.Info(ctx, "llm stream", requestAttributes(request, level)...)

				start := time.Now()
				stream, err := next(ctx, request)
				if err != nil {
					logger.Error(ctx, "llm stream failed",
						observability.String(observability.AttrLLMModel, request.Model),
						observability.Duration(observability.AttrDuration, time.Since(start)),
						observability.Error(err),
					)
					return nil, err
				}
				return wrapStreamWithLogging(ctx, stream, logger, request.Model, level, start), nil
			}
		},
	}
}

func wrapStreamWithLogging(ctx context.Context, stream *ai.ChatStream, logger observability.Logger, model string, level LogLevel, start time.Time) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		response := &ai.ChatResponse{Model: model}

		for event, err := range stream.Iter() {
			if err != nil {
				logger.Error(ctx, "llm stream failed",
					observability.String(observability.AttrLLMModel, model),
					observability.Duration(observability.AttrDuration, time.Since(start)),
					observability.Error(err),
				)
				yield(event, err)
				return
			}

			switch event.Type {
			case ai.StreamEventContent:
				response.Content += event.Content
			case ai.StreamEventUsage:
				response.Usage = event.Usage
			case ai.StreamEventDone:
				response.FinishReason = event.FinishReason
			}

			if !yield(event, nil) {
				logger.Info(ctx, "llm stream abandoned",
					observability.String(observability.AttrLLMModel, model),
					observability.Duration(observability.AttrDuration, time.Since(start)),
				)
				return
			}
			if event.Type == ai.StreamEventDone {
				break
			}
		}

		logger.Info(ctx, "llm stream completed", responseAttributes(response, time.Since(start), level)...)
	})
}

func requestAttributes(request ai.ChatRequest, level LogLevel) []observability.Attribute {
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMModel, request.Model),
	}
	if level >= LogLevelStandard {
		attrs = append(attrs,
			observability.Int("llm.message_count", len(request.Messages)),
			observability.Int("llm.tool_count", len(request.Tools)),
		)
	}
	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		first := request.Messages[0]
		attrs = append(attrs,
			observability.String("llm.first_message.role", string(first.Role)),
			observability.String("llm.first_message.content", observability.TruncateString(first.Content, 0)),
		)
	}
	return attrs
}

func responseAttributes(response *ai.ChatResponse, elapsed time.Duration, level LogLevel) []observability.Attribute {
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMModel, response.Model),
		observability.Duration(observability.AttrDuration, elapsed),
	}
	if response.Usage != nil {
		attrs = append(attrs,
			observability.Int("llm.usage.prompt_tokens", response.Usage.PromptTokens),
			observability.Int("llm.usage.completion_tokens", response.Usage.CompletionTokens),
			observability.Int("llm.usage.total_tokens", response.Usage.TotalTokens),
		)
	}
	if level >= LogLevelStandard && response.FinishReason != "" {
		attrs = append(attrs, observability.String("llm.finish_reason", response.FinishReason))
	}
	if level >= LogLevelVerbose && response.Content != "" {
		attrs = append(attrs, observability.String("llm.response.content", observability.TruncateString(response.Content, 0)))
	}
	return attrs
}
