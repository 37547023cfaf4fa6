package annotation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// VideoInfo is one row of a video_frames_info CSV.
type VideoInfo struct {
	Name      string
	FPS       float64
	NumFrames int
}

// Duration returns the video length in seconds derived from its frame count.
func (v VideoInfo) Duration() float64 {
	if v.FPS <= 0 {
		return 0
	}
	return float64(v.NumFrames) / v.FPS
}

// LoadFrameInfo reads a CSV of <video_name>,<fps>[,<num_frames>] rows. The
// first row is a header and is skipped.
func LoadFrameInfo(path string) ([]VideoInfo, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open frame info: %w", err)
	}
	defer file.Close()
	infos, err := ParseFrameInfo(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return infos, nil
}

// ParseFrameInfo reads frame info rows from r.
func ParseFrameInfo(r io.Reader) ([]VideoInfo, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var out []VideoInfo
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read frame info: %w", err)
		}
		if len(row) < 2 {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: expected at least 2 columns, got %d", line, len(row))
		}
		info := VideoInfo{Name: strings.TrimSpace(row[0])}
		if info.FPS, err = strconv.ParseFloat(strings.TrimSpace(row[1]), 64); err != nil {
			return nil, fmt.Errorf("video %s: parse fps: %w", info.Name, err)
		}
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			if info.NumFrames, err = strconv.Atoi(strings.TrimSpace(row[2])); err != nil {
				return nil, fmt.Errorf("video %s: parse frame count: %w", info.Name, err)
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// FPSByVideo indexes frame rates by video name.
func FPSByVideo(infos []VideoInfo) map[string]float64 {
	out := make(map[string]float64, len(infos))
	for _, info := range infos {
		out[info.Name] = info.FPS
	}
	return out
}
