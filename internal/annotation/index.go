package annotation

import "sort"

// Index maps video ids to their annotations. It is never mutated after Build
// or Resample return, so it may be shared freely across goroutines.
type Index struct {
	byVideo map[string][]Annotation
	order   []string
	total   int
}

// Build groups annotations by video id. Input order is preserved within each
// video so later output is deterministic.
func Build(rows []Annotation) *Index {
	idx := &Index{byVideo: make(map[string][]Annotation)}
	for _, row := range rows {
		if _, ok := idx.byVideo[row.VideoID]; !ok {
			idx.order = append(idx.order, row.VideoID)
		}
		idx.byVideo[row.VideoID] = append(idx.byVideo[row.VideoID], row)
		idx.total++
	}
	return idx
}

// ForVideo returns the annotations for videoID. Unknown videos yield an empty
// slice. Callers must not modify the returned slice.
func (idx *Index) ForVideo(videoID string) []Annotation {
	if idx == nil {
		return nil
	}
	return idx.byVideo[videoID]
}

// Has reports whether any annotation exists for videoID.
func (idx *Index) Has(videoID string) bool {
	if idx == nil {
		return false
	}
	_, ok := idx.byVideo[videoID]
	return ok
}

// Videos returns video ids in first-seen order.
func (idx *Index) Videos() []string {
	if idx == nil {
		return nil
	}
	out := make([]string, len(idx.order))
	copy(out, idx.order)
	return out
}

// Len returns the total number of annotations.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return idx.total
}

// All returns every annotation, grouped by video in first-seen order.
func (idx *Index) All() []Annotation {
	if idx == nil {
		return nil
	}
	out := make([]Annotation, 0, idx.total)
	for _, video := range idx.order {
		out = append(out, idx.byVideo[video]...)
	}
	return out
}

// Categories returns the distinct categories in lexicographic order.
func (idx *Index) Categories() []string {
	if idx == nil {
		return nil
	}
	seen := make(map[string]struct{})
	for _, list := range idx.byVideo {
		for _, a := range list {
			seen[a.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for cat := range seen {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// FilterByCategory returns, per video, the annotations tagged with category.
// Videos without a matching annotation are omitted.
func (idx *Index) FilterByCategory(category string) map[string][]Annotation {
	out := make(map[string][]Annotation)
	if idx == nil {
		return out
	}
	category = NormalizeCategory(category)
	for _, video := range idx.order {
		for _, a := range idx.byVideo[video] {
			if a.Category == category {
				out[video] = append(out[video], a)
			}
		}
	}
	return out
}

// Resample returns a new index whose frame bounds are expressed at target
// frames per second. The receiver is left untouched, and resampling to the
// rate an annotation already carries leaves it unchanged.
func (idx *Index) Resample(target float64) *Index {
	if idx == nil || target <= 0 {
		return idx
	}
	out := &Index{
		byVideo: make(map[string][]Annotation, len(idx.byVideo)),
		order:   append([]string(nil), idx.order...),
		total:   idx.total,
	}
	for video, list := range idx.byVideo {
		resampled := make([]Annotation, len(list))
		for i, a := range list {
			resampled[i] = a.resampled(target)
		}
		out.byVideo[video] = resampled
	}
	return out
}
