package matrix_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"framelabel/internal/annotation"
	"framelabel/internal/frames"
	"framelabel/internal/matrix"
	"framelabel/internal/metrics"
	"framelabel/internal/testsupport"
)

func TestRunWritesOneDatasetPerVideo(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	testsupport.WriteFrames(t, root, map[string]int{"v1": 5, "v2": 3}, 1, 1)
	output := filepath.Join(t.TempDir(), "matrix.h5")

	idx := annotation.Build([]annotation.Annotation{
		mustNew(t, "v1", "run", 1.0, 3.0, 1),
		mustNew(t, "v1", "jump", 0.5, 10, 1),
	})
	result, err := matrix.Run(ctx, matrix.RunOptions{
		FramesRoot:      root,
		Index:           idx,
		Mapping:         mustMapping(t, "jump", "run"),
		FramesPerSecond: 1,
		Output:          output,
		Verify:          true,
		Metrics:         metrics.New(),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Videos != 2 || result.Frames != 8 || result.Clipped != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	// jump covers rows 1..4 of v1, run covers row 2.
	if result.Ones != 5 {
		t.Fatalf("expected 5 set cells, got %d", result.Ones)
	}

	f, err := matrix.Open(ctx, output)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	v1, err := f.Read(ctx, "v1")
	if err != nil {
		t.Fatalf("Read v1: %v", err)
	}
	if v1.Rows != 5 || v1.Cols != 2 || v1.At(2, 1) != 1 || v1.At(0, 0) != 0 || v1.At(4, 0) != 1 {
		t.Fatalf("unexpected v1 matrix %+v", v1)
	}
	v2, err := f.Read(ctx, "v2")
	if err != nil {
		t.Fatalf("Read v2: %v", err)
	}
	if v2.Rows != 3 || v2.Ones() != 0 {
		t.Fatalf("unexpected v2 matrix %+v", v2)
	}
	if fps, ok, err := f.Attr(ctx, matrix.AttrFramesPerSecond); err != nil || !ok || fps != "1" {
		t.Fatalf("frames_per_second attr = %q, %v, %v", fps, ok, err)
	}
}

func TestRunRejectsFrameGaps(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFrames(t, root, map[string]int{"v1": 3}, 1, 1)
	if err := os.Remove(filepath.Join(root, "v1", "frame2.png")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	output := filepath.Join(t.TempDir(), "matrix.h5")

	_, err := matrix.Run(context.Background(), matrix.RunOptions{
		FramesRoot:      root,
		Index:           annotation.Build(nil),
		Mapping:         mustMapping(t, "run"),
		FramesPerSecond: 10,
		Output:          output,
	})
	if !errors.Is(err, frames.ErrNonContiguous) {
		t.Fatalf("expected ErrNonContiguous, got %v", err)
	}
	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("output written despite gap: %v", statErr)
	}
}

func TestRunRequiresPositiveFrameRate(t *testing.T) {
	_, err := matrix.Run(context.Background(), matrix.RunOptions{
		FramesRoot: t.TempDir(),
		Index:      annotation.Build(nil),
		Mapping:    mustMapping(t, "run"),
		Output:     filepath.Join(t.TempDir(), "matrix.h5"),
	})
	if err == nil {
		t.Fatal("expected error for zero frame rate")
	}
}
