package frames

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// ErrNonContiguous reports a video whose frame numbers do not run 1..N.
var ErrNonContiguous = errors.New("non-contiguous frame numbering")

var framePattern = regexp.MustCompile(`^frame([0-9]+)\.png$`)

// Key identifies one physical frame. Index is 1-based and matches the
// number in the frame's file name.
type Key struct {
	VideoID string
	Index   int
}

// String formats the key as "<video_id>-<index>".
func (k Key) String() string {
	return fmt.Sprintf("%s-%d", k.VideoID, k.Index)
}

// Frame is a frame file and the key parsed from its path.
type Frame struct {
	Path string
	Key  Key
}

// ParsePath extracts the video id and frame index from
// <root>/<video_id>/frame<N>.png.
func ParsePath(path string) (Key, error) {
	m := framePattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return Key{}, fmt.Errorf("frame path %q does not match frame<N>.png", path)
	}
	index, err := strconv.Atoi(m[1])
	if err != nil {
		return Key{}, fmt.Errorf("frame path %q: %w", path, err)
	}
	video := filepath.Base(filepath.Dir(path))
	if video == "." || video == string(filepath.Separator) {
		return Key{}, fmt.Errorf("frame path %q has no video directory", path)
	}
	return Key{VideoID: video, Index: index}, nil
}

// Listing is the result of scanning a frames root.
type Listing struct {
	Frames  []Frame
	Counts  map[string]int
	Ignored []string
}

// Discover scans <root>/*/ for frame<N>.png files. Frames are sorted by video
// id then frame index. Files that do not follow the naming contract are
// reported in Ignored.
func Discover(root string) (*Listing, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read frames root: %w", err)
	}
	listing := &Listing{Counts: make(map[string]int)}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		videoDir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(videoDir)
		if err != nil {
			return nil, fmt.Errorf("read video dir %s: %w", videoDir, err)
		}
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			path := filepath.Join(videoDir, file.Name())
			if filepath.Ext(file.Name()) != ".png" {
				continue
			}
			key, err := ParsePath(path)
			if err != nil {
				listing.Ignored = append(listing.Ignored, path)
				continue
			}
			listing.Frames = append(listing.Frames, Frame{Path: path, Key: key})
			listing.Counts[key.VideoID]++
		}
	}
	sort.Slice(listing.Frames, func(i, j int) bool {
		a, b := listing.Frames[i].Key, listing.Frames[j].Key
		if a.VideoID != b.VideoID {
			return a.VideoID < b.VideoID
		}
		return a.Index < b.Index
	})
	return listing, nil
}

// Paths returns the frame paths in listing order.
func (l *Listing) Paths() []string {
	out := make([]string, len(l.Frames))
	for i, f := range l.Frames {
		out[i] = f.Path
	}
	return out
}

// ByPath indexes frame keys by path.
func (l *Listing) ByPath() map[string]Key {
	out := make(map[string]Key, len(l.Frames))
	for _, f := range l.Frames {
		out[f.Path] = f.Key
	}
	return out
}

// Videos returns the observed video ids in sorted order.
func (l *Listing) Videos() []string {
	out := make([]string, 0, len(l.Counts))
	for video := range l.Counts {
		out = append(out, video)
	}
	sort.Strings(out)
	return out
}

// CheckContiguous verifies that every video's frames are numbered 1..N with
// no gaps or duplicates. Dense label matrices depend on this.
func (l *Listing) CheckContiguous() error {
	expected := make(map[string]int)
	for _, f := range l.Frames {
		want := expected[f.Key.VideoID] + 1
		if f.Key.Index != want {
			return fmt.Errorf("%w: video %s has frame %d where frame %d was expected", ErrNonContiguous, f.Key.VideoID, f.Key.Index, want)
		}
		expected[f.Key.VideoID] = want
	}
	return nil
}
