// Package preflight provides readiness checks for the filesystem paths and
// listeners a run depends on.
//
// The records and matrix commands call RunAll before doing any work so a
// missing annotation directory or unwritable output location fails in
// milliseconds instead of after the frame scan. The "framelabel check"
// command renders the same results as a table.
package preflight
