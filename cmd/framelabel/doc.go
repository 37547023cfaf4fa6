// Package main hosts the framelabel CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into records and matrix
// runs, annotation file conversions, store inspection, and configuration
// scaffolding. It centralizes configuration resolution, run ids, signal
// handling, and logger setup so subcommands only translate flags into the
// options of the internal packages.
package main
