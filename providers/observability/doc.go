// Package observability defines the tracing, metrics and structured logging
// abstraction used by the flow engine and its providers.
//
// [Provider] composes [Tracer], [Metrics] and [Logger] into one injectable
// dependency. The active provider and span travel through a context.Context
// ([ContextWithObserver], [ContextWithSpan]) so that nodes and tools invoked
// deep inside a run report under the run's span. A nil provider disables
// observability entirely.
//
// semconv.go holds the attribute keys, span names and metric names emitted
// by the engine.
package observability
