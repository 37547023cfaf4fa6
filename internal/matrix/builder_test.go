package matrix_test

import (
	"fmt"
	"math/rand"
	"reflect"
	"testing"

	"framelabel/internal/annotation"
	"framelabel/internal/matrix"
)

func mustNew(t *testing.T, video, category string, start, end, fps float64) annotation.Annotation {
	t.Helper()
	a, err := annotation.New(video, category, start, end, fps)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func mustMapping(t *testing.T, names ...string) *annotation.ClassMapping {
	t.Helper()
	m, err := annotation.NewClassMapping(names)
	if err != nil {
		t.Fatalf("NewClassMapping: %v", err)
	}
	return m
}

func TestRowRange(t *testing.T) {
	tests := []struct {
		name        string
		start, end  float64
		fps         float64
		n           int
		lo, hi      int
		wantClipped bool
	}{
		{name: "boundaries excluded", start: 1.0, end: 2.0, fps: 10, n: 100, lo: 11, hi: 20},
		{name: "five frames", start: 1.0, end: 3.0, fps: 1, n: 5, lo: 2, hi: 3},
		{name: "clipped at end", start: 0.5, end: 100, fps: 1, n: 5, lo: 1, hi: 5, wantClipped: true},
		{name: "negative start", start: -3, end: 0.25, fps: 10, n: 10, lo: 0, hi: 3},
		{name: "past the video", start: 50, end: 60, fps: 1, n: 5, lo: 5, hi: 5, wantClipped: true},
		{name: "between frames", start: 1.01, end: 1.09, fps: 10, n: 50, lo: 11, hi: 11},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := mustNew(t, "v", "c", tt.start, tt.end, tt.fps)
			lo, hi, clipped := matrix.RowRange(a, tt.fps, tt.n)
			if lo != tt.lo || hi != tt.hi || clipped != tt.wantClipped {
				t.Fatalf("RowRange = [%d, %d) clipped=%v, want [%d, %d) clipped=%v", lo, hi, clipped, tt.lo, tt.hi, tt.wantClipped)
			}
		})
	}
}

func TestBuildFiveFrameScenario(t *testing.T) {
	idx := annotation.Build([]annotation.Annotation{mustNew(t, "v1", "run", 1.0, 3.0, 1)})
	matrices, stats := matrix.Build(idx, mustMapping(t, "jump", "run"), map[string]int{"v1": 5}, 1)

	m := matrices["v1"]
	if m.Rows != 5 || m.Cols != 2 {
		t.Fatalf("unexpected shape (%d, %d)", m.Rows, m.Cols)
	}
	want := []uint8{0, 0, 0, 0, 0, 1, 0, 0, 0, 0}
	if !reflect.DeepEqual(m.Data, want) {
		t.Fatalf("matrix = %v, want %v", m.Data, want)
	}
	if stats.Videos != 1 || stats.Intervals != 1 || stats.Clipped != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestBuildZeroFillsAndSkips(t *testing.T) {
	idx := annotation.Build([]annotation.Annotation{
		mustNew(t, "v1", "run", 0, 2, 1),
		mustNew(t, "ghost", "run", 0, 2, 1),
		mustNew(t, "ghost", "jump", 0, 2, 1),
		mustNew(t, "v1", "dance", 0, 2, 1),
	})
	matrices, stats := matrix.Build(idx, mustMapping(t, "jump", "run"), map[string]int{"v1": 3, "quiet": 4}, 1)

	if len(matrices) != 2 {
		t.Fatalf("expected matrices for observed videos only, got %d", len(matrices))
	}
	quiet := matrices["quiet"]
	if quiet.Rows != 4 || quiet.Ones() != 0 {
		t.Fatalf("unannotated video should be zero-filled, got %+v", quiet)
	}
	if got := matrices["v1"].Active(1); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("v1 row 1 active = %v", got)
	}
	if !reflect.DeepEqual(stats.SkippedVideos, []string{"ghost"}) || stats.SkippedIntervals != 2 {
		t.Fatalf("unexpected skip stats %+v", stats)
	}
	if !reflect.DeepEqual(stats.Unmapped, []string{"dance"}) {
		t.Fatalf("unexpected unmapped %v", stats.Unmapped)
	}
}

func TestBuildMatchesReferenceOnRandomData(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	categories := []string{"a", "b", "c", "d", "e"}
	mapping := mustMapping(t, categories[:4]...)

	for _, fps := range []float64{1, 10, 25, 29.97, 30} {
		t.Run(fmt.Sprintf("fps %v", fps), func(t *testing.T) {
			counts := make(map[string]int)
			var rows []annotation.Annotation
			for v := 0; v < 12; v++ {
				video := fmt.Sprintf("video_%02d", v)
				counts[video] = 1 + rng.Intn(300)
				duration := float64(counts[video]) / fps
				for i := 0; i < 8; i++ {
					start := rng.Float64()*(duration+4) - 2
					if rng.Intn(4) == 0 {
						// Land exactly on a frame timestamp.
						start = float64(rng.Intn(counts[video])) / fps
					}
					end := start + 0.01 + rng.Float64()*duration/2
					rows = append(rows, mustNew(t, video, categories[rng.Intn(len(categories))], start, end, fps))
				}
			}
			idx := annotation.Build(rows)

			got, _ := matrix.Build(idx, mapping, counts, fps)
			want := matrix.Reference(idx, mapping, counts, fps)
			if video := matrix.Mismatch(got, want); video != "" {
				t.Fatalf("stamped matrix for %s differs from reference", video)
			}
		})
	}
}

func TestMismatchDetectsDifferences(t *testing.T) {
	a := map[string]*matrix.LabelMatrix{"v": matrix.New(2, 2)}
	b := map[string]*matrix.LabelMatrix{"v": matrix.New(2, 2)}
	if got := matrix.Mismatch(a, b); got != "" {
		t.Fatalf("identical maps reported mismatch %q", got)
	}
	b["v"].Set(1, 1)
	if got := matrix.Mismatch(a, b); got != "v" {
		t.Fatalf("expected mismatch on v, got %q", got)
	}
	a["extra"] = matrix.New(1, 1)
	b["v"] = matrix.New(2, 2)
	if got := matrix.Mismatch(a, b); got != "extra" {
		t.Fatalf("expected mismatch on extra, got %q", got)
	}
}
