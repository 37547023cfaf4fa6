package annotation

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"framelabel/internal/fileutil"
)

type jsonAnnotation struct {
	Filename        string  `json:"filename"`
	StartSeconds    float64 `json:"start_seconds"`
	EndSeconds      float64 `json:"end_seconds"`
	StartFrame      int     `json:"start_frame"`
	EndFrame        int     `json:"end_frame"`
	FramesPerSecond float64 `json:"frames_per_second"`
	Category        string  `json:"category"`
}

// DecodeJSON reads a JSON array of annotations. Frame bounds are re-derived
// from seconds and frame rate through New.
func DecodeJSON(r io.Reader) ([]Annotation, error) {
	var raw []jsonAnnotation
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode annotations: %w", err)
	}
	out := make([]Annotation, 0, len(raw))
	for i, row := range raw {
		a, err := New(row.Filename, row.Category, row.StartSeconds, row.EndSeconds, row.FramesPerSecond)
		if err != nil {
			return nil, fmt.Errorf("annotation %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

// LoadJSON reads annotations from a JSON file and builds the index.
func LoadJSON(path string) (*Index, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open annotations: %w", err)
	}
	defer file.Close()
	rows, err := DecodeJSON(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return Build(rows), nil
}

// EncodeJSON writes annotations in the JSON interchange format.
func EncodeJSON(w io.Writer, rows []Annotation) error {
	raw := make([]jsonAnnotation, len(rows))
	for i, a := range rows {
		raw[i] = jsonAnnotation{
			Filename:        a.VideoID,
			StartSeconds:    a.StartSeconds,
			EndSeconds:      a.EndSeconds,
			StartFrame:      a.StartFrame,
			EndFrame:        a.EndFrame,
			FramesPerSecond: a.FrameRate,
			Category:        a.Category,
		}
	}
	return json.NewEncoder(w).Encode(raw)
}

// WriteJSON atomically writes annotations to path, creating parent
// directories.
func WriteJSON(path string, rows []Annotation) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		if err := EncodeJSON(w, rows); err != nil {
			return fmt.Errorf("encode annotations: %w", err)
		}
		return nil
	})
}
