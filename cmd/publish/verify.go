package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kawabatas/bundle-publisher/internal/app/usecase"
	"github.com/kawabatas/bundle-publisher/internal/infra/config"
)

func newVerifyCmd(cfg config.AppConfig, flags *publishFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "verify -v VERSION",
		Short: "Check that a published bundle has the expected Cache-Control and is public-read",
		Long: "Check that a published bundle has the expected Cache-Control and is public-read.\n" +
			"When HISTORY_DB is set, the object is also matched against the latest recorded publish of the version.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := flags.apply(cfg)
			provider, err := newProvider(c)
			if err != nil {
				return err
			}
			var opts []usecase.Option
			if c.HistoryEnabled() {
				ds, err := openHistory(cmd.Context(), c)
				if err != nil {
					return err
				}
				defer ds.Close()
				opts = append(opts, usecase.WithHistory(ds.Publications()))
			}
			v, err := usecase.NewPublisher(provider, opts...).Verify(cmd.Context(), c.Request(flags.version), c.Credentials())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ok %s size=%d cache-control=%q acl=%s\n", v.Attrs.Key, v.Attrs.Size, v.Attrs.CacheControl, v.Attrs.ACL)
			if r := v.Recorded; r != nil {
				fmt.Fprintf(out, "matches publish #%d md5=%s at %s\n", r.ID, r.MD5, r.PublishedAt.UTC().Format(time.RFC3339))
			}
			return nil
		},
	}
}
