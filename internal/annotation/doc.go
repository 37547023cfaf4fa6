// Package annotation holds temporal action annotations and the per-video index
// built from them.
//
// Annotations are immutable values created through New, which enforces that
// every interval is non-empty and derives the frame bounds from the interval's
// seconds and frame rate. Index groups annotations by video, keeps input order
// for deterministic output, and can be resampled to another frame rate without
// mutating the original. ClassMapping assigns category ids by line position.
//
// The package also parses the on-disk annotation formats: THUMOS-style
// per-category text files, the JSON interchange format, and the
// video_frames_info CSV that supplies per-video frame rates.
package annotation
