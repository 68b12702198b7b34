// Package logging provides vectra's slog construction helpers and the
// standardized structured field names shared across components.
//
// Two handlers are supported: a human-oriented console format and JSON for
// machine consumption. Components derive their loggers via
// NewComponentLogger so the console handler can hoist the component name into
// the line prefix.
package logging
