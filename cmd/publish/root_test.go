package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawabatas/bundle-publisher/internal/app/usecase"
	"github.com/kawabatas/bundle-publisher/internal/infra/config"
)

func localConfig(t *testing.T) config.AppConfig {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, config.DefaultBucket), 0755))
	bundle := filepath.Join(t.TempDir(), "bundle.zip")
	require.NoError(t, os.WriteFile(bundle, []byte("zip"), 0644))
	return config.AppConfig{
		StorageProvider:  "local",
		Bucket:           config.DefaultBucket,
		KeyPrefix:        config.DefaultKeyPrefix,
		File:             bundle,
		CacheControl:     config.DefaultCacheControl,
		LocalStorageRoot: root,
		HistoryDB:        filepath.Join(t.TempDir(), "history.sqlite"),
	}
}

func run(t *testing.T, cfg config.AppConfig, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(cfg)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPublishVerifyHistory(t *testing.T) {
	cfg := localConfig(t)

	out, err := run(t, cfg, "-v", "1.2.3")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "file://"), out)
	assert.Contains(t, out, "lookio-cdn/ios/1.2.3/bundle.zip")

	out, err = run(t, cfg, "verify", "-v", "1.2.3")
	require.NoError(t, err)
	assert.Contains(t, out, `ok ios/1.2.3/bundle.zip size=3 cache-control="max-age=15, must-revalidate" acl=public-read`)
	assert.Contains(t, out, "matches publish #1 md5=")

	out, err = run(t, cfg, "history")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "1.2.3")
	assert.Contains(t, lines[1], "lookio-cdn/ios/1.2.3/bundle.zip")
}

func TestDryRunTouchesNothing(t *testing.T) {
	cfg := localConfig(t)
	out, err := run(t, cfg, "--dry-run", "-v", "2.0.0")
	require.NoError(t, err)
	assert.Contains(t, out, "local:lookio-cdn/ios/2.0.0/bundle.zip")

	_, err = os.Stat(filepath.Join(cfg.LocalStorageRoot, "lookio-cdn", "ios"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(cfg.HistoryDB)
	assert.True(t, os.IsNotExist(err))
}

func TestFlagsOverrideConfig(t *testing.T) {
	cfg := localConfig(t)
	require.NoError(t, os.Mkdir(filepath.Join(cfg.LocalStorageRoot, "other"), 0755))

	out, err := run(t, cfg, "-v", "1", "--bucket", "other", "--prefix", "android/", "--cache-control", "no-cache")
	require.NoError(t, err)
	assert.Contains(t, out, "other/android/1/bundle.zip")

	_, err = run(t, cfg, "verify", "-v", "1", "--bucket", "other", "--prefix", "android/", "--cache-control", "no-cache")
	assert.NoError(t, err)
}

func TestErrors(t *testing.T) {
	cfg := localConfig(t)

	_, err := run(t, cfg)
	assert.ErrorIs(t, err, usecase.ErrInvalidRequest)

	_, err = run(t, cfg, "-v", "1", "--file", filepath.Join(t.TempDir(), "missing.zip"))
	assert.ErrorIs(t, err, usecase.ErrLocalFileNotFound)

	_, err = run(t, cfg, "-v", "1", "--bucket", "nope")
	assert.ErrorIs(t, err, usecase.ErrBucketNotFound)

	_, err = run(t, cfg, "-v", "1", "--provider", "ftp")
	assert.ErrorContains(t, err, "unknown storage provider")

	_, err = run(t, cfg, "verify", "-v", "9.9.9")
	assert.Error(t, err)

	cfg.HistoryDB = ""
	_, err = run(t, cfg, "history")
	assert.ErrorContains(t, err, "HISTORY_DB")
}

func TestVerifyDetectsTamperedObject(t *testing.T) {
	cfg := localConfig(t)
	_, err := run(t, cfg, "-v", "3.1")
	require.NoError(t, err)

	remote := filepath.Join(cfg.LocalStorageRoot, "lookio-cdn", "ios", "3.1", "bundle.zip")
	require.NoError(t, os.WriteFile(remote, []byte("pk!"), 0644))

	_, err = run(t, cfg, "verify", "-v", "3.1")
	assert.ErrorIs(t, err, usecase.ErrVerifyMismatch)
	assert.ErrorContains(t, err, "md5")
}
