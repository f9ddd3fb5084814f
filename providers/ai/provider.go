package ai

import "context"

// Provider is the interface every chat model backend satisfies.
type Provider interface {
	// SendMessage sends a chat request and returns the completed response.
	// Returns an error if the call fails, the context is cancelled, or the
	// response cannot be decoded.
	SendMessage(ctx context.Context, request ChatRequest) (*ChatResponse, error)

	// IsStopMessage reports whether the response is terminal, meaning the
	// model requested no further tool calls.
	IsStopMessage(message *ChatResponse) bool
}

// StreamProvider is implemented by providers that can deliver a response
// incrementally. Pre-stream errors are returned directly; mid-stream errors
// are yielded through the stream.
type StreamProvider interface {
	Provider
	StreamMessage(ctx context.Context, request ChatRequest) (*ChatStream, error)
}
