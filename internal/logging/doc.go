// Package logging assembles the structured slog loggers used across reelsmith.
//
// It owns the console and JSON handlers, level and output plumbing, the typed
// attribute helpers, and context-aware helpers that tag log lines with job IDs,
// stages and request IDs. JobLog writes the single JSON summary line for every
// finished job, independent of the configured log format.
package logging
