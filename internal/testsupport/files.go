package testsupport

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// WritePNG encodes img to path, creating parent directories.
func WritePNG(t testing.TB, path string, img image.Image) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// FramePixel is the color WriteFrames paints at (x, y) of frame index.
func FramePixel(index, x, y int) color.NRGBA {
	return color.NRGBA{R: uint8(index), G: uint8(x * 10), B: uint8(y * 20), A: 0xff}
}

// WriteFrames lays out <root>/<video>/frame<N>.png for N in 1..counts[video]
// with width x height images painted by FramePixel. It returns the written
// paths sorted by video then frame index.
func WriteFrames(t testing.TB, root string, counts map[string]int, width, height int) []string {
	t.Helper()

	videos := make([]string, 0, len(counts))
	for video := range counts {
		videos = append(videos, video)
	}
	sort.Strings(videos)

	var paths []string
	for _, video := range videos {
		for index := 1; index <= counts[video]; index++ {
			img := image.NewNRGBA(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					img.SetNRGBA(x, y, FramePixel(index, x, y))
				}
			}
			path := filepath.Join(root, video, fmt.Sprintf("frame%d.png", index))
			WritePNG(t, path, img)
			paths = append(paths, path)
		}
	}
	return paths
}
