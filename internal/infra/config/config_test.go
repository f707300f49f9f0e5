package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kawabatas/bundle-publisher/internal/domain/model"
)

func TestNewFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"STORAGE_PROVIDER", "PUBLISH_BUCKET", "PUBLISH_FILE", "PUBLISH_CACHE_CONTROL", "S3_ENDPOINT", "S3_USE_SSL", "HISTORY_DB"} {
		t.Setenv(k, "")
	}
	cfg := NewFromEnv()

	assert.Equal(t, "s3", cfg.StorageProvider)
	assert.Equal(t, "lookio-cdn", cfg.Bucket)
	assert.Equal(t, "bundle.zip", cfg.File)
	assert.Equal(t, "max-age=15, must-revalidate", cfg.CacheControl)
	assert.Equal(t, "s3.amazonaws.com", cfg.S3().Endpoint)
	assert.True(t, cfg.S3().UseSSL)
	assert.False(t, cfg.HistoryEnabled())
}

func TestKeyPrefix(t *testing.T) {
	t.Setenv("PUBLISH_KEY_PREFIX", "android/")
	assert.Equal(t, "android/", NewFromEnv().KeyPrefix)

	// 明示的な空文字列はそのまま（バケット直下）
	t.Setenv("PUBLISH_KEY_PREFIX", "")
	assert.Equal(t, "", NewFromEnv().KeyPrefix)
}

func TestOverrides(t *testing.T) {
	t.Setenv("STORAGE_PROVIDER", "GCS")
	t.Setenv("S3_USE_SSL", "off")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "shh")
	t.Setenv("GCS_CREDENTIALS_FILE", "/etc/sa.json")
	t.Setenv("HISTORY_DB", "./tmp/history.sqlite")
	cfg := NewFromEnv()

	assert.Equal(t, "gcs", cfg.StorageProvider)
	assert.False(t, cfg.S3().UseSSL)
	assert.True(t, cfg.HistoryEnabled())
	assert.Equal(t, model.Credentials{AccessKey: "AKIA", SecretKey: "shh", File: "/etc/sa.json"}, cfg.Credentials())
}

func TestRequest(t *testing.T) {
	t.Setenv("PUBLISH_KEY_PREFIX", "ios/")
	cfg := NewFromEnv()
	req := cfg.Request("1.2.3")
	assert.Equal(t, "ios/1.2.3/bundle.zip", req.ObjectKey())
	assert.Equal(t, cfg.CacheControl, req.CacheControl)
}
