package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"framelabel/internal/annotation"
	"framelabel/internal/fileutil"
	"framelabel/internal/logging"
)

func newAnnotationsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotations",
		Short: "Convert and split temporal annotation files",
	}
	cmd.AddCommand(newAnnotationsParseCommand(ctx))
	cmd.AddCommand(newAnnotationsTrimmedCommand(ctx))
	cmd.AddCommand(newAnnotationsSplitCommand(ctx))
	return cmd
}

func newAnnotationsParseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <annotations_dir> <video_frames_info.csv> <output.json>",
		Short: "Convert per-category THUMOS annotation files to JSON",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := annotation.LoadFrameInfo(args[1])
			if err != nil {
				return err
			}
			rows, err := annotation.LoadDir(args[0], annotation.FPSByVideo(infos))
			if err != nil {
				return err
			}
			if err := annotation.WriteJSON(args[2], rows); err != nil {
				return err
			}
			idx := annotation.Build(rows)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d annotations for %d videos in %d categories to %s\n",
				idx.Len(), len(idx.Videos()), len(idx.Categories()), args[2])
			return nil
		},
	}
}

func newAnnotationsTrimmedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "trimmed <video_frames_info.csv> <class_mapping> <output.json>",
		Short: "Create whole-video annotations for trimmed training videos",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			infos, err := annotation.LoadFrameInfo(args[0])
			if err != nil {
				return err
			}
			mapping, err := annotation.LoadClassMapping(args[1])
			if err != nil {
				return err
			}
			rows, skipped, err := annotation.TrimmedVideoAnnotations(infos, mapping)
			if err != nil {
				return err
			}
			if len(skipped) > 0 {
				logging.WarnWithContext(logging.NewComponentLogger(logger, "annotations"),
					"videos skipped while deriving trimmed annotations", "trimmed_videos_skipped",
					logging.Int("count", len(skipped)),
					logging.String("example", skipped[0]),
					logging.String(logging.FieldErrorHint, "names must look like v_<Category>_gNN_cNN with a mapped category and a frame count"),
					logging.String(logging.FieldImpact, "skipped videos have no annotations"),
				)
			}
			if err := annotation.WriteJSON(args[2], rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d annotations to %s (%d videos skipped)\n", len(rows), args[2], len(skipped))
			return nil
		},
	}
}

func newAnnotationsSplitCommand(ctx *commandContext) *cobra.Command {
	var (
		portion float64
		seed    int64
	)

	cmd := &cobra.Command{
		Use:   "split <annotations.json> <trainval.txt> <valval.txt>",
		Short: "Hold out a per-category share of videos for validation",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			if portion <= 0 || portion > 1 {
				return fmt.Errorf("--val-portion must be in (0, 1], got %v", portion)
			}
			idx, err := annotation.LoadJSON(args[0])
			if err != nil {
				return err
			}
			train, heldOut := annotation.ValidationSplit(idx, portion, seed)
			if err := fileutil.WriteLines(args[1], train); err != nil {
				return err
			}
			if err := fileutil.WriteLines(args[2], heldOut); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "train videos: %d\nvalidation videos: %d\n", len(train), len(heldOut))
			return nil
		},
	}

	cmd.Flags().Float64Var(&portion, "val-portion", 0.2, "Minimum share of each category's videos to hold out")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for the split")
	return cmd
}
