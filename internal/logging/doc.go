// Package logging builds the slog loggers used by subforge commands and
// pipelines.
//
// A logger writes a human-oriented console stream to stderr and, when a log
// file is configured, a JSON stream to a size-rotated file. Run identifiers
// stored on the context are stamped onto every record as correlation_id so
// one build can be followed across components.
//
// Components take a *slog.Logger and call NewComponentLogger; a nil logger is
// valid everywhere and discards output.
package logging
