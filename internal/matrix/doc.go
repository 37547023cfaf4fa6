// Package matrix builds dense per-video label matrices and stores them in an
// array file.
//
// A LabelMatrix has one row per frame on disk and one column per class
// mapping entry. Build stamps each annotated interval into the rows whose
// query time lies strictly inside it, one category at a time with OR
// semantics, so the result matches the frame-by-frame resolver exactly.
// Reference computes the same matrices through the resolver and backs the
// --verify flag.
package matrix
