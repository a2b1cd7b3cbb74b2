package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/listenupapp/memopack/internal/export"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect ARCHIVE",
		Short: "Check that an archive matches the import layout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read archive: %w", err)
			}

			summary, err := export.Inspect(data)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "data version\t%d\n", summary.Version.DataVersion)
			fmt.Fprintf(tw, "memos\t%d\n", len(summary.Memos))
			for _, c := range summary.Categories {
				fmt.Fprintf(tw, "category\t%s (%s)\n", c.Name, c.ID)
			}
			fmt.Fprintf(tw, "tags\t%d\n", len(summary.Tags))
			fmt.Fprintf(tw, "images\t%d\n", len(summary.Images))
			for _, m := range summary.Missing {
				fmt.Fprintf(tw, "missing\t%s\n", m)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if !summary.Valid() {
				return fmt.Errorf("%s does not match the import layout", args[0])
			}
			return nil
		},
	}
}
