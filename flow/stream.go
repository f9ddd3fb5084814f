package flow

import (
	"context"
	"iter"
	"strings"
	"sync"
)

type streamState int

const (
	streamIdle streamState = iota
	streamActive
	streamDone
)

// Stream is a lazy, finite, non-restartable sequence of partial results.
// Exactly one consumer may iterate it; every item is also retained so that
// the aggregated value can be read once the stream has ended.
//
// A Stream returned on a node output is handed live to a single consumer
// port declared Streamed. Every other consumer receives the drained value.
type Stream struct {
	mu     sync.Mutex
	source iter.Seq2[any, error]
	text   bool

	state    streamState
	closing  bool
	items    []any
	err      error
	done     chan struct{}
	boundCtx context.Context
}

// NewStream wraps a sequence. The sequence is not started until the stream
// is iterated or collected.
func NewStream(source iter.Seq2[any, error]) *Stream {
	return &Stream{
		source: source,
		done:   make(chan struct{}),
	}
}

// NewTextStream wraps a sequence of text chunks. Its aggregated value is the
// concatenation of the chunks, "" when empty.
func NewTextStream(source iter.Seq2[string, error]) *Stream {
	stream := NewStream(func(yield func(any, error) bool) {
		for chunk, err := range source {
			if !yield(chunk, err) {
				return
			}
		}
	})
	stream.text = true
	return stream
}

// bind makes iteration stop with ctx's error once ctx is done.
func (stream *Stream) bind(ctx context.Context) {
	stream.mu.Lock()
	defer stream.mu.Unlock()
	if stream.boundCtx == nil {
		stream.boundCtx = ctx
	}
}

// Iter returns the sequence. Only the first call yields items; later calls
// yield a single ErrStreamConsumed.
func (stream *Stream) Iter() iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		stream.mu.Lock()
		if stream.state != streamIdle {
			stream.mu.Unlock()
			yield(nil, ErrStreamConsumed)
			return
		}
		stream.state = streamActive
		boundCtx := stream.boundCtx
		stream.mu.Unlock()

		for item, err := range stream.source {
			if boundCtx != nil && boundCtx.Err() != nil {
				stream.finish(boundCtx.Err())
				yield(nil, boundCtx.Err())
				return
			}
			if err != nil {
				stream.finish(err)
				yield(nil, err)
				return
			}
			if stream.closeRequested() {
				stream.finish(nil)
				return
			}

			stream.mu.Lock()
			stream.items = append(stream.items, item)
			stream.mu.Unlock()

			if !yield(item, nil) {
				stream.finish(nil)
				return
			}
		}
		stream.finish(nil)
	}
}

// Collect drains the stream and returns the aggregated value: the
// concatenation when every item is a string, a []any otherwise. A stream
// that has already ended returns its aggregate (or its error) again; one
// that another consumer is iterating fails with ErrStreamConsumed.
func (stream *Stream) Collect(ctx context.Context) (any, error) {
	stream.mu.Lock()
	switch stream.state {
	case streamDone:
		defer stream.mu.Unlock()
		if stream.err != nil {
			return nil, stream.err
		}
		return stream.aggregateLocked(), nil
	case streamActive:
		stream.mu.Unlock()
		return nil, ErrStreamConsumed
	}
	stream.mu.Unlock()

	for _, err := range stream.Iter() {
		if err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			stream.Close()
			return nil, ctx.Err()
		}
	}

	stream.mu.Lock()
	defer stream.mu.Unlock()
	return stream.aggregateLocked(), nil
}

// Close abandons the stream. An idle stream ends immediately; an active one
// ends before its next item.
func (stream *Stream) Close() {
	stream.mu.Lock()
	switch stream.state {
	case streamIdle:
		stream.state = streamDone
		close(stream.done)
	case streamActive:
		stream.closing = true
	}
	stream.mu.Unlock()
}

// Done is closed once the stream has ended, completed or not.
func (stream *Stream) Done() <-chan struct{} {
	return stream.done
}

// Err returns the error the stream ended with, if any.
func (stream *Stream) Err() error {
	stream.mu.Lock()
	defer stream.mu.Unlock()
	return stream.err
}

func (stream *Stream) closeRequested() bool {
	stream.mu.Lock()
	defer stream.mu.Unlock()
	return stream.closing
}

func (stream *Stream) finish(err error) {
	stream.mu.Lock()
	defer stream.mu.Unlock()
	if stream.state == streamDone {
		return
	}
	stream.state = streamDone
	stream.err = err
	close(stream.done)
}

func (stream *Stream) aggregateLocked() any {
	if len(stream.items) == 0 {
		if stream.text {
			return ""
		}
		return nil
	}

	var builder strings.Builder
	for _, item := range stream.items {
		text, ok := item.(string)
		if !ok {
			return append([]any(nil), stream.items...)
		}
		builder.WriteString(text)
	}
	return builder.String()
}
