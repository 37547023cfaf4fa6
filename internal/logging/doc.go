// Package logging assembles the slog loggers used by framelabel.
//
// It owns the console and JSON handlers, level and output plumbing, and a
// few helpers that keep warnings uniform: every WARN carries an event_type,
// an error_hint and an impact. Commands tag their loggers with a run id
// through the context so lines from one ingestion run can be grouped.
// ProgressSampler thins per-frame progress down to one line per percentage
// bucket when no terminal progress bar is shown.
package logging
