// Package slogobs implements observability.Provider on top of log/slog.
//
// Spans, metric updates and log calls all become structured slog records, so a
// run can be followed end to end from a single log stream. Counters keep their
// cumulative value in memory and can be read back with [Observer.CounterValue].
package slogobs
