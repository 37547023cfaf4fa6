package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"framelabel/internal/annotation"
	"framelabel/internal/config"
)

// datasetFlags are shared by the records and matrix commands.
type datasetFlags struct {
	framesRoot      string
	annotations     string
	classMapping    string
	output          string
	framesPerSecond float64
}

func (f *datasetFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.framesRoot, "frames-root", "", "Directory holding <video_id>/frame<N>.png files")
	flags.StringVar(&f.annotations, "annotations", "", "Annotations JSON file")
	flags.StringVar(&f.classMapping, "class-mapping", "", "Class mapping file of '<id> <category>' lines")
	flags.StringVar(&f.output, "output", "", "Output path")
	flags.Float64Var(&f.framesPerSecond, "frames-per-second", 0, "Rate the frames were extracted at (default ingest.frames_per_second)")
	for _, name := range []string{"frames-root", "annotations", "class-mapping", "output"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

// apply copies flag overrides onto cfg.
func (f *datasetFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("frames-per-second") {
		cfg.Ingest.FramesPerSecond = f.framesPerSecond
	}
}

// load reads the annotations and class mapping, resampling annotation frame
// bounds to fps.
func (f *datasetFlags) load(fps float64) (*annotation.Index, *annotation.ClassMapping, error) {
	mapping, err := annotation.LoadClassMapping(f.classMapping)
	if err != nil {
		return nil, nil, err
	}
	if mapping.Len() == 0 {
		return nil, nil, fmt.Errorf("class mapping %s lists no categories", f.classMapping)
	}
	idx, err := annotation.LoadJSON(f.annotations)
	if err != nil {
		return nil, nil, err
	}
	return idx.Resample(fps), mapping, nil
}
