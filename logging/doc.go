// Package logging configures slog output for the knownet command: a
// colorized console handler and an optional size-rotated JSON log file.
package logging
