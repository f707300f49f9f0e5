package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kawabatas/bundle-publisher/internal/infra/config"
)

func newHistoryCmd(cfg config.AppConfig) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded publications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.HistoryEnabled() {
				return errors.New("history is disabled: set HISTORY_DB")
			}
			ds, err := openHistory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer ds.Close()

			items, err := ds.Publications().List(cmd.Context(), offset, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tVERSION\tPROVIDER\tKEY\tSIZE\tMD5\tPUBLISHED")
			for _, p := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s/%s\t%d\t%s\t%s\n",
					p.ID, p.Version, p.Provider, p.Bucket, p.Key, p.Size, p.MD5, p.PublishedAt.UTC().Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "Rows to skip")
	return cmd
}
