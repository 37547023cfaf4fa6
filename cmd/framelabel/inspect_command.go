package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"framelabel/internal/kvstore"
	"framelabel/internal/record"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		backend string
	)

	cmd := &cobra.Command{
		Use:   "inspect <store>",
		Short: "Print the records held in a store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			name := cfg.Output.Backend
			if cmd.Flags().Changed("backend") {
				name = backend
			}
			runCtx, stop := ctx.runContext(cmd)
			defer stop()

			store, err := kvstore.Open(runCtx, kvstore.Options{Backend: name, Path: args[0], ReadOnly: true})
			if err != nil {
				return err
			}
			defer store.Close()

			var rows [][]string
			err = store.Scan(runCtx, limit, func(key string, value []byte) error {
				rec, err := record.Unmarshal(value)
				if err != nil {
					return fmt.Errorf("record %s: %w", key, err)
				}
				rows = append(rows, recordRow(key, rec, len(value)))
				return nil
			})
			if err != nil {
				return err
			}
			stats, err := store.Stats(runCtx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable("", []string{"Key", "Video", "Frame", "Shape", "Order", "Labels", "Size"}, rows, 2, 6))
			fmt.Fprintf(out, "%s records, %s on disk\n", humanize.Comma(int64(stats.Records)), humanize.Bytes(uint64(stats.FileBytes)))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records to print (0 = all)")
	cmd.Flags().StringVar(&backend, "backend", "", "Store backend: sqlite or bolt (default output.backend)")
	return cmd
}

func recordRow(key string, rec record.FrameRecord, size int) []string {
	names := make([]string, len(rec.Labels))
	for i, l := range rec.Labels {
		names[i] = fmt.Sprintf("%s(%d)", l.Name, l.ID)
	}
	labels := strings.Join(names, ", ")
	if labels == "" {
		labels = "-"
	}
	return []string{
		key,
		rec.VideoID,
		strconv.Itoa(rec.FrameIndex),
		fmt.Sprintf("%dx%dx%d", rec.Image.Channels, rec.Image.Height, rec.Image.Width),
		rec.Image.ChannelOrder,
		labels,
		humanize.Bytes(uint64(size)),
	}
}
