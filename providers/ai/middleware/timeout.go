package middleware

import (
	"context"
	"time"

	"github.com/leofalp/aigoflow/providers/ai"
)

// NewTimeout enforces a deadline on every provider call. For streams the
// deadline covers the whole stream: it is released once the stream ends,
// fails or is abandoned. A shorter deadline on the caller's context still wins.
func NewTimeout(timeout time.Duration) Config {
	return Config{
		Send: func(next SendFunc) SendFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatResponse, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()

				return next(ctx, request)
			}
		},
		Stream: func(next StreamFunc) StreamFunc {
			return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)

				stream, err := next(ctx, request)
				if err != nil {
					cancel()
					return nil, err
				}
				return wrapStreamWithCancel(stream, cancel), nil
			}
		},
	}
}

// wrapStreamWithCancel calls cancel once the stream is done, fails or the
// caller stops iterating.
func wrapStreamWithCancel(stream *ai.ChatStream, cancel context.CancelFunc) *ai.ChatStream {
	return ai.NewChatStream(func(yield func(ai.StreamEvent, error) bool) {
		defer cancel()

		for event, err := range stream.Iter() {
			if !yield(event, err) || err != nil || event.Type == ai.StreamEventDone {
				return
			}
		}
	})
}
