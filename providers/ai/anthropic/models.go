package anthropic

import "github.com/leofalp/aigoflow/internal/jsonx"

/*
	REQUEST
*/

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"`
	MaxTokens   int       `json:"max_tokens"` // Required on every request
	Temperature *float64  `json:"temperature,omitempty"`
	Tools       []tool    `json:"tools,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type message struct {
	Role    string         `json:"role"` // "user" or "assistant"
	Content []contentBlock `json:"content"`
}

// contentBlock is discriminated by Type: "text", "tool_use" or "tool_result".
type contentBlock struct {
	Type      string           `json:"type"`
	Text      string           `json:"text,omitempty"`
	ID        string           `json:"id,omitempty"`
	Name      string           `json:"name,omitempty"`
	Input     jsonx.RawMessage `json:"input,omitempty"`
	ToolUseID string           `json:"tool_use_id,omitempty"`
	Content   string           `json:"content,omitempty"`
}

type tool struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	InputSchema jsonx.RawMessage `json:"input_schema"`
}

/*
	RESPONSE
*/

type messagesResponse struct {
	ID         string         `json:"id"`
	Model      string         `json:"model"`
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      usage          `json:"usage"`
}

type usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

/*
	STREAM

	Event lifecycle: message_start, then per block content_block_start,
	content_block_delta and content_block_stop, then message_delta and
	message_stop. The "type" field of each data payload names the event.
*/

type streamEvent struct {
	Type         string            `json:"type"`
	Message      *messagesResponse `json:"message,omitempty"`       // message_start
	ContentBlock *contentBlock     `json:"content_block,omitempty"` // content_block_start
	Delta        *streamDelta      `json:"delta,omitempty"`         // content_block_delta, message_delta
	Usage        *usage            `json:"usage,omitempty"`         // message_delta
	Error        *apiError         `json:"error,omitempty"`         // error
}

// streamDelta is discriminated by Type: "text_delta" or "input_json_delta".
// message_delta carries only StopReason.
type streamDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
