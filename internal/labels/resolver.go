// Package labels resolves which action categories are active at a frame.
package labels

import (
	"sort"
	"sync"

	"framelabel/internal/annotation"
	"framelabel/internal/record"
)

// ForFrame returns the sorted, deduplicated categories active at a 1-indexed
// frame of videoID. The frame's query time is (frameIndex-1)/fps and a
// category is active only when that time lies strictly inside one of its
// intervals. Videos without annotations yield no labels.
func ForFrame(idx *annotation.Index, videoID string, frameIndex int, fps float64) []string {
	at := annotation.QueryTime(frameIndex, fps)
	var out []string
	for _, a := range idx.ForVideo(videoID) {
		if a.Covers(at) {
			out = append(out, a.Category)
		}
	}
	if len(out) < 2 {
		return out
	}
	sort.Strings(out)
	uniq := out[:1]
	for _, name := range out[1:] {
		if name != uniq[len(uniq)-1] {
			uniq = append(uniq, name)
		}
	}
	return uniq
}

// Resolver maps frames to labels carrying class mapping ids. Categories that
// are not in the mapping are dropped and counted.
type Resolver struct {
	index   *annotation.Index
	mapping *annotation.ClassMapping
	fps     float64

	mu      sync.Mutex
	unknown map[string]int
}

// NewResolver binds an index and mapping at the frame rate the frames were
// extracted at.
func NewResolver(idx *annotation.Index, mapping *annotation.ClassMapping, fps float64) *Resolver {
	return &Resolver{index: idx, mapping: mapping, fps: fps, unknown: make(map[string]int)}
}

// Labels returns the mapped labels for a frame, ordered by category name.
func (r *Resolver) Labels(videoID string, frameIndex int) []record.Label {
	names := ForFrame(r.index, videoID, frameIndex, r.fps)
	if len(names) == 0 {
		return nil
	}
	out := make([]record.Label, 0, len(names))
	for _, name := range names {
		id, ok := r.mapping.ID(name)
		if !ok {
			r.mu.Lock()
			r.unknown[name]++
			r.mu.Unlock()
			continue
		}
		out = append(out, record.Label{Name: name, ID: id})
	}
	return out
}

// HasAnnotations reports whether the video appears in the index.
func (r *Resolver) HasAnnotations(videoID string) bool {
	return r.index.Has(videoID)
}

// Unknown returns how many frame labels were dropped per unmapped category.
func (r *Resolver) Unknown() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(r.unknown))
	for k, v := range r.unknown {
		out[k] = v
	}
	return out
}

// UnmappedCategories lists categories present in idx but absent from
// mapping, in lexicographic order.
func UnmappedCategories(idx *annotation.Index, mapping *annotation.ClassMapping) []string {
	var out []string
	for _, category := range idx.Categories() {
		if _, ok := mapping.ID(category); !ok {
			out = append(out, category)
		}
	}
	return out
}
