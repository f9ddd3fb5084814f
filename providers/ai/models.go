package ai

import (
	"github.com/leofalp/aigoflow/internal/jsonschema"
	"github.com/leofalp/aigoflow/internal/jsonx"
)

/*
	##### PROVIDER INPUT #####
*/

// ChatRequest represents a request to send a chat message
type ChatRequest struct {
	Model            string            `json:"model,omitempty"`             // Model name or identifier
	Messages         []Message         `json:"messages"`                    // Conversation without the system prompt
	SystemPrompt     string            `json:"system_prompt,omitempty"`     // Optional system prompt
	Tools            []ToolDescription `json:"tools,omitempty"`             // Tools the model may call
	GenerationConfig *GenerationConfig `json:"generation_config,omitempty"` // Optional generation configuration
}

// ToolDescription is the function-calling surface of a tool.
type ToolDescription struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Parameters  *jsonschema.Schema `json:"parameters,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // For role=assistant requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // For role=tool, links to the tool call being answered
	Name       string     `json:"name,omitempty"`         // For role=tool, name of the tool that produced this message
}

type GenerationConfig struct {
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float32 `json:"temperature,omitempty"` // Sampling temperature [0..2]
}

/*
	##### PROVIDER OUTPUT #####
*/

type Usage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Add accumulates other into usage. A nil other is ignored.
func (usage *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	usage.PromptTokens += other.PromptTokens
	usage.CompletionTokens += other.CompletionTokens
	usage.TotalTokens += other.TotalTokens
}

// ChatResponse represents the response from a chat completion
type ChatResponse struct {
	Id           string     `json:"id"`
	Model        string     `json:"model"`
	Created      int64      `json:"created"`
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason,omitempty"`
	Usage        *Usage     `json:"usage,omitempty"`
}

// ToolCall represents a function call requested by the model
type ToolCall struct {
	ID       string           `json:"id,omitempty"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// ToolResult is the standardized outcome of a tool execution. Domain failures
// (nothing to store, no match found, bad arguments) are reported with
// Success=false instead of a Go error so the caller can keep going.
type ToolResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`   // Machine-readable code when Success is false
	Message string `json:"message,omitempty"` // Human-readable description
	Data    any    `json:"data,omitempty"`
}

// Error codes used in ToolResult payloads.
const (
	ToolErrorNotFound        = "tool_not_found"
	ToolErrorInvalidInput    = "invalid_input"
	ToolErrorExecutionFailed = "tool_execution_failed"
	ToolErrorNoContent       = "no_content"
)

// NewToolResultSuccess creates a successful tool result.
func NewToolResultSuccess(data any) ToolResult {
	return ToolResult{
		Success: true,
		Data:    data,
	}
}

// NewToolResultError creates a failed tool result. errorType is a
// machine-readable code such as ToolErrorNotFound.
func NewToolResultError(errorType, message string) ToolResult {
	return ToolResult{
		Success: false,
		Error:   errorType,
		Message: message,
	}
}

// ToJSON converts the ToolResult to a JSON string.
func (result ToolResult) ToJSON() (string, error) {
	return jsonx.MarshalString(result)
}

/*
	##### ENUMS #####
*/

// MessageRole represents the role of a message; compatible with string
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)
