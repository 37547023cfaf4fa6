package labels_test

import (
	"reflect"
	"testing"

	"framelabel/internal/annotation"
	"framelabel/internal/labels"
	"framelabel/internal/record"
)

func buildIndex(t *testing.T, rows ...annotation.Annotation) *annotation.Index {
	t.Helper()
	return annotation.Build(rows)
}

func mustNew(t *testing.T, video, category string, start, end, fps float64) annotation.Annotation {
	t.Helper()
	a, err := annotation.New(video, category, start, end, fps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestForFrameExcludesBoundaries(t *testing.T) {
	idx := buildIndex(t, mustNew(t, "v1", "run", 1.0, 2.0, 10))
	// Frame 11 sits at exactly 1.0s, frame 16 at 1.5s, frame 21 at 2.0s.
	if got := labels.ForFrame(idx, "v1", 11, 10); len(got) != 0 {
		t.Fatalf("frame at start boundary labeled: %v", got)
	}
	if got := labels.ForFrame(idx, "v1", 16, 10); !reflect.DeepEqual(got, []string{"run"}) {
		t.Fatalf("frame inside interval = %v", got)
	}
	if got := labels.ForFrame(idx, "v1", 21, 10); len(got) != 0 {
		t.Fatalf("frame at end boundary labeled: %v", got)
	}
}

func TestForFrameFiveFrameScenario(t *testing.T) {
	idx := buildIndex(t, mustNew(t, "v1", "run", 1.0, 3.0, 1))
	want := map[int][]string{
		1: nil,
		2: nil,
		3: {"run"},
		4: nil,
		5: nil,
	}
	for frame := 1; frame <= 5; frame++ {
		got := labels.ForFrame(idx, "v1", frame, 1)
		if !reflect.DeepEqual(got, want[frame]) {
			t.Errorf("frame %d: got %v, want %v", frame, got, want[frame])
		}
	}
}

func TestForFrameSortsAndDeduplicates(t *testing.T) {
	idx := buildIndex(t,
		mustNew(t, "v1", "run", 0, 10, 10),
		mustNew(t, "v1", "jump", 0, 10, 10),
		mustNew(t, "v1", "run", 2, 5, 10),
		mustNew(t, "v2", "sit", 0, 10, 10),
	)
	got := labels.ForFrame(idx, "v1", 31, 10)
	if !reflect.DeepEqual(got, []string{"jump", "run"}) {
		t.Fatalf("labels = %v", got)
	}
}

func TestForFrameUnknownVideoIsEmpty(t *testing.T) {
	idx := buildIndex(t, mustNew(t, "v1", "run", 0, 10, 10))
	if got := labels.ForFrame(idx, "nope", 5, 10); len(got) != 0 {
		t.Fatalf("labels = %v", got)
	}
}

func TestResolverMapsIDsAndCountsUnknown(t *testing.T) {
	idx := buildIndex(t,
		mustNew(t, "v1", "run", 0, 10, 10),
		mustNew(t, "v1", "dance", 0, 10, 10),
		mustNew(t, "v1", "jump", 0, 10, 10),
	)
	mapping, err := annotation.NewClassMapping([]string{"run", "jump"})
	if err != nil {
		t.Fatalf("NewClassMapping: %v", err)
	}
	r := labels.NewResolver(idx, mapping, 10)
	got := r.Labels("v1", 5)
	want := []record.Label{{Name: "jump", ID: 1}, {Name: "run", ID: 0}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Labels = %+v, want %+v", got, want)
	}
	r.Labels("v1", 6)
	if unknown := r.Unknown(); unknown["dance"] != 2 || len(unknown) != 1 {
		t.Fatalf("Unknown = %v", unknown)
	}
	if got := labels.UnmappedCategories(idx, mapping); !reflect.DeepEqual(got, []string{"dance"}) {
		t.Fatalf("UnmappedCategories = %v", got)
	}
}
