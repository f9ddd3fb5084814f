package ai

import (
	"iter"
	"strings"
)

// StreamEventType identifies the kind of delta carried by a StreamEvent.
type StreamEventType string

const (
	StreamEventContent  StreamEventType = "content"
	StreamEventToolCall StreamEventType = "tool_call"
	StreamEventUsage    StreamEventType = "usage"
	StreamEventDone     StreamEventType = "done"
)

// ToolCallDelta is an incremental update to a streamed tool call. ID and Name
// only appear on the first chunk for an index.
type ToolCallDelta struct {
	Index     int    `json:"index"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// StreamEvent is a single delta yielded while a response streams.
type StreamEvent struct {
	Type         StreamEventType `json:"type"`
	Content      string          `json:"content,omitempty"`
	ToolCall     *ToolCallDelta  `json:"tool_call,omitempty"`
	Usage        *Usage          `json:"usage,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"`
}

// ChatStream wraps a streaming iterator. Callers must consume it, either by
// ranging over Iter (breaking early is fine) or by calling Collect, so the
// provider can release the underlying connection.
type ChatStream struct {
	iterator iter.Seq2[StreamEvent, error]
}

// NewChatStream creates a ChatStream from a raw streaming iterator.
func NewChatStream(iterator iter.Seq2[StreamEvent, error]) *ChatStream {
	return &ChatStream{iterator: iterator}
}

// NewSingleEventStream wraps a complete response as a stream, for providers
// that cannot stream natively.
func NewSingleEventStream(response *ChatResponse) *ChatStream {
	return NewChatStream(func(yield func(StreamEvent, error) bool) {
		if response.Content != "" {
			if !yield(StreamEvent{Type: StreamEventContent, Content: response.Content}, nil) {
				return
			}
		}
		for toolIndex, toolCall := range response.ToolCalls {
			delta := &ToolCallDelta{
				Index:     toolIndex,
				ID:        toolCall.ID,
				Name:      toolCall.Function.Name,
				Arguments: toolCall.Function.Arguments,
			}
			if !yield(StreamEvent{Type: StreamEventToolCall, ToolCall: delta}, nil) {
				return
			}
		}
		if response.Usage != nil {
			if !yield(StreamEvent{Type: StreamEventUsage, Usage: response.Usage}, nil) {
				return
			}
		}
		yield(StreamEvent{Type: StreamEventDone, FinishReason: response.FinishReason}, nil)
	})
}

// Iter returns the underlying iterator for range-over-func loops.
func (stream *ChatStream) Iter() iter.Seq2[StreamEvent, error] {
	return stream.iterator
}

// Text returns only the content deltas of the stream. Stopping the returned
// sequence early stops the underlying one.
func (stream *ChatStream) Text() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for event, err := range stream.iterator {
			if err != nil {
				yield("", err)
				return
			}
			if event.Type != StreamEventContent || event.Content == "" {
				continue
			}
			if !yield(event.Content, nil) {
				return
			}
		}
	}
}

// Collect consumes the whole stream into a ChatResponse. A mid-stream error
// stops collection and is returned with the partial response.
func (stream *ChatStream) Collect() (*ChatResponse, error) {
	accumulated := &ChatResponse{}
	var toolCallBuilders []toolCallBuilder

	for event, err := range stream.iterator {
		if err != nil {
			return accumulated, err
		}

		switch event.Type {
		case StreamEventContent:
			accumulated.Content += event.Content
		case StreamEventToolCall:
			if event.ToolCall != nil {
				toolCallBuilders = accumulateToolCallDelta(toolCallBuilders, event.ToolCall)
			}
		case StreamEventUsage:
			if event.Usage != nil {
				accumulated.Usage = event.Usage
			}
		case StreamEventDone:
			accumulated.FinishReason = event.FinishReason
		}
	}

	for _, builder := range toolCallBuilders {
		accumulated.ToolCalls = append(accumulated.ToolCalls, ToolCall{
			ID:   builder.id,
			Type: "function",
			Function: ToolCallFunction{
				Name:      builder.name,
				Arguments: builder.arguments.String(),
			},
		})
	}

	return accumulated, nil
}

type toolCallBuilder struct {
	id        string
	name      string
	arguments strings.Builder
}

func accumulateToolCallDelta(builders []toolCallBuilder, delta *ToolCallDelta) []toolCallBuilder {
	for len(builders) <= delta.Index {
		builders = append(builders, toolCallBuilder{})
	}

	builder := &builders[delta.Index]
	if delta.ID != "" {
		builder.id = delta.ID
	}
	if delta.Name != "" {
		builder.name = delta.Name
	}
	if delta.Arguments != "" {
		builder.arguments.WriteString(delta.Arguments)
	}
	return builders
}
