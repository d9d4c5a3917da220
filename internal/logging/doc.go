// Package logging assembles the structured slog loggers used across oktabot.
//
// It owns the console and JSON handlers, rotates file output through
// lumberjack, and exposes context-aware helpers so stage code tags log lines
// with the project, stage, and run identifiers carried on context.Context.
// Loggers are always passed explicitly; nothing here keeps global state.
//
// NewNop returns a logger that discards everything, for tests and wiring code
// that has no sink.
package logging
