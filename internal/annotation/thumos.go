package annotation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	valSuffix  = "_val.txt"
	textSuffix = ".txt"
)

// CategoryFromFilename derives the category from a THUMOS annotation file
// name of the form <category>_val.txt or <category>.txt.
func CategoryFromFilename(path string) (string, error) {
	base := filepath.Base(path)
	switch {
	case strings.HasSuffix(base, valSuffix):
		return NormalizeCategory(strings.TrimSuffix(base, valSuffix)), nil
	case strings.HasSuffix(base, textSuffix):
		return NormalizeCategory(strings.TrimSuffix(base, textSuffix)), nil
	default:
		return "", fmt.Errorf("unrecognized annotation file name %q", base)
	}
}

// ParseLine splits "<video_id> <start> <end>". THUMOS files put two spaces
// after the video id while MultiTHUMOS uses one; both are accepted.
func ParseLine(line string) (videoID string, start, end float64, err error) {
	fields := strings.Split(strings.TrimSpace(line), " ")
	if len(fields) > 1 && fields[1] == "" {
		fields = append(fields[:1], fields[2:]...)
	}
	if len(fields) != 3 || fields[0] == "" {
		return "", 0, 0, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	start, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: start %q: %v", ErrMalformedLine, fields[1], err)
	}
	end, err = strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: end %q: %v", ErrMalformedLine, fields[2], err)
	}
	return fields[0], start, end, nil
}

// ParseCategoryFile reads one category's annotation lines. fps supplies the
// frame rate of every referenced video. Any malformed line aborts the file.
func ParseCategoryFile(r io.Reader, category string, fps map[string]float64) ([]Annotation, error) {
	scanner := bufio.NewScanner(r)
	var out []Annotation
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		videoID, start, end, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		rate, ok := fps[videoID]
		if !ok {
			return nil, fmt.Errorf("line %d: no frame rate for video %q", lineNo, videoID)
		}
		a, err := New(videoID, category, start, end, rate)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read annotations: %w", err)
	}
	return out, nil
}

// LoadDir parses every per-category annotation file in dir. Files are
// visited in name order so the result is deterministic.
func LoadDir(dir string, fps map[string]float64) ([]Annotation, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read annotation dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	var out []Annotation
	for _, name := range names {
		path := filepath.Join(dir, name)
		category, err := CategoryFromFilename(path)
		if err != nil {
			return nil, err
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open annotation file: %w", err)
		}
		parsed, err := ParseCategoryFile(file, category, fps)
		_ = file.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, parsed...)
	}
	return out, nil
}
