package annotation_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"framelabel/internal/annotation"
)

func TestParseLineAcceptsSingleAndDoubleSpace(t *testing.T) {
	for _, line := range []string{"video_validation_1 1.5 3.2", "video_validation_1  1.5 3.2"} {
		video, start, end, err := annotation.ParseLine(line)
		if err != nil {
			t.Fatalf("ParseLine(%q): %v", line, err)
		}
		if video != "video_validation_1" || start != 1.5 || end != 3.2 {
			t.Fatalf("ParseLine(%q) = %q %v %v", line, video, start, end)
		}
	}
}

func TestParseLineRejectsMalformed(t *testing.T) {
	for _, line := range []string{"v1 1.0", "v1 1.0 2.0 3.0", "v1 abc 2.0", "v1 1.0 x"} {
		if _, _, _, err := annotation.ParseLine(line); !errors.Is(err, annotation.ErrMalformedLine) {
			t.Errorf("ParseLine(%q) error = %v, want ErrMalformedLine", line, err)
		}
	}
}

func TestCategoryFromFilename(t *testing.T) {
	tests := map[string]string{
		"/ann/BaseballPitch_val.txt": "BaseballPitch",
		"/ann/Run.txt":               "Run",
	}
	for path, want := range tests {
		got, err := annotation.CategoryFromFilename(path)
		if err != nil || got != want {
			t.Errorf("CategoryFromFilename(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	if _, err := annotation.CategoryFromFilename("/ann/readme.md"); err == nil {
		t.Fatal("expected error for non-txt file")
	}
}

func TestParseCategoryFileAbortsOnMalformedLine(t *testing.T) {
	fps := map[string]float64{"v1": 10}
	input := "v1 1.0 2.0\nv1 broken\nv1 3.0 4.0\n"
	_, err := annotation.ParseCategoryFile(strings.NewReader(input), "run", fps)
	if !errors.Is(err, annotation.ErrMalformedLine) {
		t.Fatalf("expected ErrMalformedLine, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("error should name the line: %v", err)
	}
}

func TestParseCategoryFileRequiresFrameRate(t *testing.T) {
	_, err := annotation.ParseCategoryFile(strings.NewReader("v9 1 2\n"), "run", map[string]float64{})
	if err == nil {
		t.Fatal("expected error for video without frame rate")
	}
}

func TestLoadDirAssignsCategoryFromFileName(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("Run_val.txt", "v1  1.0 2.0\nv2 0.5 0.75\n")
	write("Jump.txt", "v1 3.0 4.0\n")

	rows, err := annotation.LoadDir(dir, map[string]float64{"v1": 10, "v2": 30})
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 annotations, got %d", len(rows))
	}
	if rows[0].Category != "Jump" || rows[1].Category != "Run" || rows[2].VideoID != "v2" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[2].FrameRate != 30 || rows[2].StartFrame != 15 || rows[2].EndFrame != 23 {
		t.Fatalf("unexpected frame bounds: %+v", rows[2])
	}
}

func TestParseFrameInfo(t *testing.T) {
	input := "video,fps,num_frames\nv1,29.97,300\nv2, 25\n"
	infos, err := annotation.ParseFrameInfo(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ParseFrameInfo: %v", err)
	}
	want := []annotation.VideoInfo{{Name: "v1", FPS: 29.97, NumFrames: 300}, {Name: "v2", FPS: 25}}
	if !reflect.DeepEqual(infos, want) {
		t.Fatalf("infos = %+v, want %+v", infos, want)
	}
	fps := annotation.FPSByVideo(infos)
	if fps["v2"] != 25 {
		t.Fatalf("FPSByVideo = %v", fps)
	}
}

func TestJSONRoundTripKeepsOrderAndFields(t *testing.T) {
	rows := []annotation.Annotation{
		mustNew(t, "v1", "run", 1, 3, 10),
		mustNew(t, "v2", "jump", 0.25, 0.75, 4),
	}
	var buf bytes.Buffer
	if err := annotation.EncodeJSON(&buf, rows); err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	if !strings.Contains(buf.String(), `"frames_per_second":10`) {
		t.Fatalf("unexpected encoding: %s", buf.String())
	}
	decoded, err := annotation.DecodeJSON(&buf)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if !reflect.DeepEqual(decoded, rows) {
		t.Fatalf("decoded = %+v, want %+v", decoded, rows)
	}
}

func TestDecodeJSONRejectsInvalidInterval(t *testing.T) {
	input := `[{"filename":"v1","start_seconds":3,"end_seconds":1,"frames_per_second":10,"category":"run"}]`
	if _, err := annotation.DecodeJSON(strings.NewReader(input)); !errors.Is(err, annotation.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestTrimmedVideoAnnotations(t *testing.T) {
	mapping, err := annotation.NewClassMapping([]string{"YoYo", "Knitting"})
	if err != nil {
		t.Fatalf("NewClassMapping: %v", err)
	}
	videos := []annotation.VideoInfo{
		{Name: "v_YoYo_g25_c05.avi", FPS: 25, NumFrames: 100},
		{Name: "v_Surfing_g01_c01", FPS: 25, NumFrames: 50},
		{Name: "garbage", FPS: 25, NumFrames: 50},
		{Name: "v_Knitting_g16_c02", FPS: 30, NumFrames: 0},
	}
	rows, skipped, err := annotation.TrimmedVideoAnnotations(videos, mapping)
	if err != nil {
		t.Fatalf("TrimmedVideoAnnotations: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 annotation, got %+v", rows)
	}
	got := rows[0]
	if got.VideoID != "v_YoYo_g25_c05" || got.Category != "YoYo" || got.EndSeconds != 4 || got.EndFrame != 100 || got.StartFrame != 0 {
		t.Fatalf("unexpected annotation: %+v", got)
	}
	if len(skipped) != 3 {
		t.Fatalf("skipped = %v", skipped)
	}
}

func TestValidationSplitHoldsOutEveryCategory(t *testing.T) {
	var rows []annotation.Annotation
	for _, video := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j"} {
		rows = append(rows, mustNew(t, video, "run", 0, 1, 10))
	}
	rows = append(rows, mustNew(t, "k", "jump", 0, 1, 10))
	idx := annotation.Build(rows)

	train, held := annotation.ValidationSplit(idx, 0.2, 7)
	if len(train)+len(held) != 11 {
		t.Fatalf("split lost videos: train=%v held=%v", train, held)
	}
	heldSet := map[string]bool{}
	for _, v := range held {
		heldSet[v] = true
	}
	if !heldSet["k"] {
		t.Fatal("single-video category must be held out")
	}
	runHeld := 0
	for v := range idx.FilterByCategory("run") {
		if heldSet[v] {
			runHeld++
		}
	}
	if runHeld != 2 {
		t.Fatalf("expected 2 held-out run videos, got %d", runHeld)
	}

	train2, held2 := annotation.ValidationSplit(idx, 0.2, 7)
	if !reflect.DeepEqual(train, train2) || !reflect.DeepEqual(held, held2) {
		t.Fatal("split is not deterministic for a fixed seed")
	}
}
