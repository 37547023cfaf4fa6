package annotation

import (
	"fmt"
	"path/filepath"
	"strings"
)

// LabelFromVideoName extracts the category from a trimmed training video
// name of the form v_<Category>_g<NN>_c<NN>, with or without an extension.
func LabelFromVideoName(name string) (string, error) {
	base := strings.TrimSuffix(filepath.Base(strings.TrimRight(name, "/")), filepath.Ext(name))
	parts := strings.Split(base, "_")
	if len(parts) < 2 || parts[1] == "" {
		return "", fmt.Errorf("not a trimmed video name: %q", name)
	}
	return NormalizeCategory(parts[1]), nil
}

// TrimmedVideoAnnotations returns one whole-video annotation for every
// trimmed training video whose name carries a mapped category. Videos with
// unrecognized names, unmapped categories or no frames are skipped; the
// skipped names are returned alongside.
func TrimmedVideoAnnotations(videos []VideoInfo, mapping *ClassMapping) ([]Annotation, []string, error) {
	var (
		out     []Annotation
		skipped []string
	)
	for _, video := range videos {
		label, err := LabelFromVideoName(video.Name)
		if err != nil {
			skipped = append(skipped, video.Name)
			continue
		}
		if _, ok := mapping.ID(label); !ok {
			skipped = append(skipped, video.Name)
			continue
		}
		if video.NumFrames <= 0 {
			skipped = append(skipped, video.Name)
			continue
		}
		name := strings.TrimSuffix(filepath.Base(video.Name), filepath.Ext(video.Name))
		a, err := New(name, label, 0, video.Duration(), video.FPS)
		if err != nil {
			return nil, nil, fmt.Errorf("video %s: %w", video.Name, err)
		}
		out = append(out, a)
	}
	return out, skipped, nil
}
