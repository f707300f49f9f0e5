package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kawabatas/bundle-publisher/internal/app/usecase"
	"github.com/kawabatas/bundle-publisher/internal/infra/config"
	"github.com/kawabatas/bundle-publisher/internal/infra/datastore"
	storageif "github.com/kawabatas/bundle-publisher/internal/infra/storage"
	gcsstore "github.com/kawabatas/bundle-publisher/internal/infra/storage/gcs"
	localstore "github.com/kawabatas/bundle-publisher/internal/infra/storage/local"
	s3store "github.com/kawabatas/bundle-publisher/internal/infra/storage/s3"
)

// publishFlags は環境変数の設定を上書きする CLI フラグです。
type publishFlags struct {
	version         string
	accessKey       string
	secretKey       string
	credentialsFile string
	file            string
	bucket          string
	prefix          string
	cacheControl    string
	provider        string
}

// apply returns cfg with non-empty flags applied.
func (f publishFlags) apply(cfg config.AppConfig) config.AppConfig {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.AccessKey, f.accessKey)
	set(&cfg.SecretKey, f.secretKey)
	set(&cfg.GCSCredentialsFile, f.credentialsFile)
	set(&cfg.File, f.file)
	set(&cfg.Bucket, f.bucket)
	set(&cfg.CacheControl, f.cacheControl)
	set(&cfg.StorageProvider, f.provider)
	// prefix は空文字列も意味を持つため、フラグ指定時の値をそのまま使う
	cfg.KeyPrefix = f.prefix
	return cfg
}

func newRootCmd(cfg config.AppConfig) *cobra.Command {
	var (
		flags  publishFlags
		dryRun bool
	)
	root := &cobra.Command{
		Use:           "publish -v VERSION [-k ACCESS_KEY -s SECRET_KEY]",
		Short:         "Upload the release bundle under a versioned key and make it public",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := flags.apply(cfg)
			provider, err := newProvider(c)
			if err != nil {
				return err
			}
			req := c.Request(flags.version)

			if dryRun {
				plan, err := usecase.NewPublisher(provider).Plan(req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "would upload %s (%d bytes, md5 %s) to %s:%s/%s\n",
					req.LocalFilePath, plan.Size, plan.MD5, provider.Name(), plan.Bucket, plan.Key)
				return nil
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
			pub, err := usecase.NewPublisher(provider, opts...).Publish(cmd.Context(), req, c.Credentials())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pub.URL)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.version, "version", "v", "", "Bundle version (used verbatim in the object key)")
	pf.StringVarP(&flags.accessKey, "key", "k", "", "Access key (default $AWS_ACCESS_KEY_ID)")
	pf.StringVarP(&flags.secretKey, "secret", "s", "", "Secret access key (default $AWS_SECRET_ACCESS_KEY)")
	pf.StringVar(&flags.credentialsFile, "credentials-file", "", "Service account JSON for gcs (default $GCS_CREDENTIALS_FILE)")
	pf.StringVar(&flags.file, "file", cfg.File, "Local file to upload")
	pf.StringVar(&flags.bucket, "bucket", cfg.Bucket, "Target bucket")
	pf.StringVar(&flags.prefix, "prefix", cfg.KeyPrefix, "Remote key prefix")
	pf.StringVar(&flags.cacheControl, "cache-control", cfg.CacheControl, "Cache-Control value set on the object")
	pf.StringVar(&flags.provider, "provider", cfg.StorageProvider, "Storage provider: s3 | gcs | local")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "Validate inputs and print the target key without uploading")

	root.AddCommand(newVerifyCmd(cfg, &flags), newHistoryCmd(cfg))
	return root
}

func newProvider(cfg config.AppConfig) (storageif.Provider, error) {
	switch cfg.StorageProvider {
	case "s3":
		return &s3store.Provider{Config: cfg.S3()}, nil
	case "gcs":
		return &gcsstore.Provider{Endpoint: cfg.GCSEndpoint}, nil
	case "local":
		return &localstore.Store{Root: cfg.LocalStorageRoot}, nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}
}

func openHistory(ctx context.Context, cfg config.AppConfig) (datastore.DataStore, error) {
	ds, err := datastore.Open(ctx, datastore.Config{Driver: "sqlite", Path: cfg.HistoryDB})
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// CLI は単発実行なので 1 接続で十分
	ds.SetConnPool(1, 1)
	slog.DebugContext(ctx, "history enabled", slog.String("path", cfg.HistoryDB))
	return ds, nil
}
