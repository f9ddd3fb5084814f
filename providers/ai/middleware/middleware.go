// Package middleware wraps an ai.Provider with cross-cutting behavior such as
// per-request deadlines and request logging.
//
// Middlewares execute outermost-first: the first config passed to Wrap runs
// first on the way in and last on the way out.
//
//	provider := middleware.Wrap(openai.New(),
//	    middleware.NewTimeout(30*time.Second),
//	    middleware.NewLogging(observer, middleware.LogLevelStandard),
//	)
package middleware

import (
	"context"

	"github.com/leofalp/aigoflow/providers/ai"
)

// SendFunc sends a chat request and returns the completed response.
type SendFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error)

// StreamFunc sends a chat request and returns a stream of events.
type StreamFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error)

// Middleware wraps the next SendFunc in the chain.
type Middleware func(next SendFunc) SendFunc

// StreamMiddleware is the streaming counterpart of Middleware.
type StreamMiddleware func(next StreamFunc) StreamFunc

// Config pairs a send middleware with its optional streaming counterpart.
// Either may be nil.
type Config struct {
	Send   Middleware
	Stream StreamMiddleware
}

// Wrap returns provider with configs applied. The result implements
// ai.StreamProvider exactly when provider does.
func Wrap(provider ai.Provider, configs ...Config) ai.Provider {
	if len(configs) == 0 {
		return provider
	}

	wrapped := &wrappedProvider{
		inner: provider,
		send:  buildSendChain(provider, configs),
	}
	if streamer, ok := provider.(ai.StreamProvider); ok {
		return &wrappedStreamProvider{
			wrappedProvider: wrapped,
			stream:          buildStreamChain(streamer, configs),
		}
	}
	return wrapped
}

type wrappedProvider struct {
	inner ai.Provider
	send  SendFunc
}

var _ ai.Provider = (*wrappedProvider)(nil)

func (provider *wrappedProvider) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
	return provider.send(ctx, request)
}

func (provider *wrappedProvider) IsStopMessage(message *ai.ChatResponse) bool {
	return provider.inner.IsStopMessage(message)
}

// Unwrap returns the provider the middlewares wrap.
func (provider *wrappedProvider) Unwrap() ai.Provider {
	return provider.inner
}

type wrappedStreamProvider struct {
	*wrappedProvider
	stream StreamFunc
}

var _ ai.StreamProvider = (*wrappedStreamProvider)(nil)

func (provider *wrappedStreamProvider) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	return provider.stream(ctx, request)
}

// buildSendChain applies configs in reverse so that configs[0] is outermost.
func buildSendChain(provider ai.Provider, configs []Config) SendFunc {
	var chain SendFunc = provider.SendMessage
	for index := len(configs) - 1; index >= 0; index-- {
		if configs[index].Send != nil {
			chain = configs[index].Send(chain)
		}
	}
	return chain
}

func buildStreamChain(provider ai.StreamProvider, configs []Config) StreamFunc {
	var chain StreamFunc = provider.StreamMessage
	for index := len(configs) - 1; index >= 0; index-- {
		if configs[index].Stream != nil {
			chain = configs[index].Stream(chain)
		}
	}
	return chain
}
