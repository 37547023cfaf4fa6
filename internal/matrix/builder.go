package matrix

import (
	"math"
	"sort"

	"framelabel/internal/annotation"
	"framelabel/internal/labels"
)

// Stats describes what Build did with the annotations it was given.
type Stats struct {
	Videos    int
	Intervals int
	// Clipped counts intervals that run past the last frame of their video.
	Clipped int
	// SkippedIntervals counts intervals on videos with no frames.
	SkippedIntervals int
	SkippedVideos    []string
	// Unmapped lists annotated categories absent from the class mapping.
	Unmapped []string
}

// Build returns one matrix per video in frameCounts, sized by its frame
// count with a column per mapping entry. Intervals are stamped category by
// category; cells are only ever set, so overlapping intervals OR together.
func Build(idx *annotation.Index, mapping *annotation.ClassMapping, frameCounts map[string]int, fps float64) (map[string]*LabelMatrix, Stats) {
	out := make(map[string]*LabelMatrix, len(frameCounts))
	for video, n := range frameCounts {
		out[video] = New(n, mapping.Len())
	}
	stats := Stats{Videos: len(out), Unmapped: labels.UnmappedCategories(idx, mapping)}

	skipped := make(map[string]bool)
	for col, category := range mapping.Names() {
		for video, rows := range idx.FilterByCategory(category) {
			m, ok := out[video]
			if !ok {
				skipped[video] = true
				stats.SkippedIntervals += len(rows)
				continue
			}
			for _, a := range rows {
				stats.Intervals++
				lo, hi, clipped := RowRange(a, fps, m.Rows)
				if clipped {
					stats.Clipped++
				}
				for r := lo; r < hi; r++ {
					m.Set(r, col)
				}
			}
		}
	}
	for video := range skipped {
		stats.SkippedVideos = append(stats.SkippedVideos, video)
	}
	sort.Strings(stats.SkippedVideos)
	return out, stats
}

// RowRange returns the half-open row range [lo, hi) whose query times lie
// strictly inside a, limited to a video of n frames. Row r is frame r+1.
// clipped reports that the interval extends past the last frame.
func RowRange(a annotation.Annotation, fps float64, n int) (lo, hi int, clipped bool) {
	covered := func(row int) bool { return a.Covers(annotation.QueryTime(row+1, fps)) }
	after := func(row int) bool { return annotation.QueryTime(row+1, fps) > a.StartSeconds }

	// The floor/ceil estimates are within a row of the exact bounds; the
	// scans below settle float rounding with the same predicate the resolver
	// uses.
	lo = min(max(int(math.Floor(a.StartSeconds*fps))-1, 0), n)
	for lo < n && !after(lo) {
		lo++
	}
	endRow := int(math.Ceil(a.EndSeconds * fps))
	clipped = endRow > n
	hi = min(max(endRow+1, 0), n)
	for hi > lo && !covered(hi-1) {
		hi--
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi, clipped
}

// Reference computes the matrices frame by frame through the resolver.
func Reference(idx *annotation.Index, mapping *annotation.ClassMapping, frameCounts map[string]int, fps float64) map[string]*LabelMatrix {
	out := make(map[string]*LabelMatrix, len(frameCounts))
	for video, n := range frameCounts {
		m := New(n, mapping.Len())
		for r := 0; r < n; r++ {
			for _, name := range labels.ForFrame(idx, video, r+1, fps) {
				if col, ok := mapping.ID(name); ok {
					m.Set(r, col)
				}
			}
		}
		out[video] = m
	}
	return out
}

// Mismatch names the first video whose matrices differ, or "" when got and
// want agree.
func Mismatch(got, want map[string]*LabelMatrix) string {
	videos := make([]string, 0, len(want))
	for video := range want {
		videos = append(videos, video)
	}
	for video := range got {
		if _, ok := want[video]; !ok {
			videos = append(videos, video)
		}
	}
	sort.Strings(videos)
	for _, video := range videos {
		if !got[video].Equal(want[video]) {
			return video
		}
	}
	return ""
}
