package slogobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/leofalp/aigoflow/providers/observability"
)

// Observer implements observability.Provider using log/slog.
type Observer struct {
	logger  *slog.Logger
	metrics *metricsStore
}

// Ensure Observer implements observability.Provider.
var _ observability.Provider = (*Observer)(nil)

// New creates a slog-backed observer. Without options it writes INFO and
// above as text to stderr.
//
// Example:
//
//	values, _ := config.Load(".env")
//	observer := slogobs.New(slogobs.WithConfig(values))
//	result, err := graph.Run(ctx, "hello", flow.WithObserver(observer))
func New(opts ...Option) *Observer {
	return &Observer{
		logger:  applyOptions(opts...).buildLogger(),
		metrics: newMetricsStore(),
	}
}

// Logger returns the underlying slog.Logger.
func (observer *Observer) Logger() *slog.Logger {
	return observer.logger
}

// --- TRACING ---

// StartSpan logs the span start at debug level. The returned span logs its
// duration and accumulated attributes when ended.
func (observer *Observer) StartSpan(ctx context.Context, name string, attrs ...observability.Attribute) (context.Context, observability.Span) {
	span := &slogSpan{
		name:      name,
		startTime: time.Now(),
		logger:    observer.logger,
		attrs:     attrs,
	}

	logAttrs := append([]slog.Attr{
		slog.String("span", name),
		slog.String("event", "span.start"),
	}, toSlogAttrs(attrs)...)
	observer.logger.LogAttrs(ctx, slog.LevelDebug, "span started", logAttrs...)

	return observability.ContextWithSpan(ctx, span), span
}

type slogSpan struct {
	name      string
	startTime time.Time
	logger    *slog.Logger

	mu    sync.Mutex
	attrs []observability.Attribute
}

func (span *slogSpan) End() {
	span.mu.Lock()
	defer span.mu.Unlock()

	logAttrs := append([]slog.Attr{
		slog.String("span", span.name),
		slog.String("event", "span.end"),
		slog.Duration("duration", time.Since(span.startTime)),
	}, toSlogAttrs(span.attrs)...)
	span.logger.LogAttrs(context.Background(), slog.LevelDebug, "span ended", logAttrs...)
}

func (span *slogSpan) SetAttributes(attrs ...observability.Attribute) {
	span.mu.Lock()
	defer span.mu.Unlock()
	span.attrs = append(span.attrs, attrs...)
}

func (span *slogSpan) SetStatus(code observability.StatusCode, description string) {
	span.mu.Lock()
	defer span.mu.Unlock()

	status := "unset"
	switch code {
	case observability.StatusOK:
		status = "ok"
	case observability.StatusError:
		status = "error"
	}

	span.attrs = append(span.attrs, observability.String(observability.AttrStatus, status))
	if description != "" {
		span.attrs = append(span.attrs, observability.String(observability.AttrStatusDescription, description))
	}
}

func (span *slogSpan) RecordError(err error) {
	if err == nil {
		return
	}
	span.mu.Lock()
	span.attrs = append(span.attrs, observability.Error(err))
	span.mu.Unlock()

	span.logger.LogAttrs(context.Background(), slog.LevelDebug, "span error",
		slog.String("span", span.name),
		slog.String("error", err.Error()),
	)
}

func (span *slogSpan) AddEvent(name string, attrs ...observability.Attribute) {
	logAttrs := append([]slog.Attr{
		slog.String("span", span.name),
		slog.String("event", name),
	}, toSlogAttrs(attrs)...)
	span.logger.LogAttrs(context.Background(), slog.LevelDebug, "span event", logAttrs...)
}

// --- METRICS ---

// Counter returns the named counter, creating it on first use.
func (observer *Observer) Counter(name string) observability.Counter {
	return observer.metrics.counter(name, observer.logger)
}

// Histogram returns the named histogram, creating it on first use.
func (observer *Observer) Histogram(name string) observability.Histogram {
	return observer.metrics.histogram(name, observer.logger)
}

// CounterValue returns the cumulative value of the named counter.
func (observer *Observer) CounterValue(name string) int64 {
	counter := observer.metrics.counter(name, observer.logger)
	counter.mu.Lock()
	defer counter.mu.Unlock()
	return counter.value
}

type metricsStore struct {
	mu         sync.Mutex
	counters   map[string]*slogCounter
	histograms map[string]*slogHistogram
}

func newMetricsStore() *metricsStore {
	return &metricsStore{
		counters:   make(map[string]*slogCounter),
		histograms: make(map[string]*slogHistogram),
	}
}

func (store *metricsStore) counter(name string, logger *slog.Logger) *slogCounter {
	store.mu.Lock()
	defer store.mu.Unlock()

	counter, exists := store.counters[name]
	if !exists {
		counter = &slogCounter{name: name, logger: logger}
		store.counters[name] = counter
	}
	return counter
}

func (store *metricsStore) histogram(name string, logger *slog.Logger) *slogHistogram {
	store.mu.Lock()
	defer store.mu.Unlock()

	histogram, exists := store.histograms[name]
	if !exists {
		histogram = &slogHistogram{name: name, logger: logger}
		store.histograms[name] = histogram
	}
	return histogram
}

type slogCounter struct {
	name   string
	logger *slog.Logger
	mu     sync.Mutex
	value  int64
}

func (counter *slogCounter) Add(ctx context.Context, value int64, attrs ...observability.Attribute) {
	counter.mu.Lock()
	counter.value += value
	current := counter.value
	counter.mu.Unlock()

	logAttrs := append([]slog.Attr{
		slog.String("metric", counter.name),
		slog.Int64("value", current),
		slog.Int64("delta", value),
	}, toSlogAttrs(attrs)...)
	counter.logger.LogAttrs(ctx, slog.LevelDebug, "counter", logAttrs...)
}

type slogHistogram struct {
	name   string
	logger *slog.Logger
}

func (histogram *slogHistogram) Record(ctx context.Context, value float64, attrs ...observability.Attribute) {
	logAttrs := append([]slog.Attr{
		slog.String("metric", histogram.name),
		slog.Float64("value", value),
	}, toSlogAttrs(attrs)...)
	histogram.logger.LogAttrs(ctx, slog.LevelDebug, "histogram", logAttrs...)
}

// --- LOGGING ---

func (observer *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.LogAttrs(ctx, LevelTrace, msg, toSlogAttrs(attrs)...)
}

func (observer *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.LogAttrs(ctx, slog.LevelDebug, msg, toSlogAttrs(attrs)...)
}

func (observer *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.LogAttrs(ctx, slog.LevelInfo, msg, toSlogAttrs(attrs)...)
}

func (observer *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.LogAttrs(ctx, slog.LevelWarn, msg, toSlogAttrs(attrs)...)
}

func (observer *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.LogAttrs(ctx, slog.LevelError, msg, toSlogAttrs(attrs)...)
}

func toSlogAttrs(attrs []observability.Attribute) []slog.Attr {
	logAttrs := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		logAttrs = append(logAttrs, slog.Any(attr.Key, attr.Value))
	}
	return logAttrs
}
