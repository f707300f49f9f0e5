package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/kawabatas/bundle-publisher/internal/domain/model"
	"github.com/kawabatas/bundle-publisher/internal/infra/storage/s3"
)

// 参照デプロイメントの既定値
const (
	DefaultBucket       = "lookio-cdn"
	DefaultKeyPrefix    = "ios/"
	DefaultFile         = "bundle.zip"
	DefaultCacheControl = "max-age=15, must-revalidate"
)

// AppConfig は環境変数を読み取りアプリ全体に渡す設定です。
type AppConfig struct {
	LogProvider string // gcp | text
	LogLevel    string // -4 | 0 | 4 | 8 or debug/info/warn/error

	StorageProvider string // s3 | gcs | local

	Bucket       string
	KeyPrefix    string
	File         string
	CacheControl string
	ContentType  string // 空なら拡張子から推定

	S3Endpoint string
	S3Region   string
	S3UseSSL   string // on | off (default on)

	AccessKey string
	SecretKey string

	GCSCredentialsFile string
	GCSEndpoint        string // エミュレータ用

	LocalStorageRoot string

	HistoryDB string // SQLite パス（空なら履歴を記録しない）
}

// Load reads an optional .env file, then the environment.
func Load() AppConfig {
	_ = godotenv.Load()
	return NewFromEnv()
}

func NewFromEnv() AppConfig {
	return AppConfig{
		LogProvider:        os.Getenv("LOG_PROVIDER"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		StorageProvider:    firstNonEmpty(strings.ToLower(os.Getenv("STORAGE_PROVIDER")), "s3"),
		Bucket:             firstNonEmpty(os.Getenv("PUBLISH_BUCKET"), DefaultBucket),
		KeyPrefix:          envOr("PUBLISH_KEY_PREFIX", DefaultKeyPrefix),
		File:               firstNonEmpty(os.Getenv("PUBLISH_FILE"), DefaultFile),
		CacheControl:       firstNonEmpty(os.Getenv("PUBLISH_CACHE_CONTROL"), DefaultCacheControl),
		ContentType:        os.Getenv("PUBLISH_CONTENT_TYPE"),
		S3Endpoint:         firstNonEmpty(os.Getenv("S3_ENDPOINT"), "s3.amazonaws.com"),
		S3Region:           firstNonEmpty(os.Getenv("S3_REGION"), "us-east-1"),
		S3UseSSL:           os.Getenv("S3_USE_SSL"),
		AccessKey:          os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey:          os.Getenv("AWS_SECRET_ACCESS_KEY"),
		GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		GCSEndpoint:        os.Getenv("GCS_ENDPOINT"),
		LocalStorageRoot:   firstNonEmpty(os.Getenv("LOCAL_STORAGE_ROOT"), "./tmp/storage"),
		HistoryDB:          os.Getenv("HISTORY_DB"),
	}
}

// S3 returns the S3 connection settings.
func (c AppConfig) S3() s3.Config {
	return s3.Config{
		Endpoint: c.S3Endpoint,
		Region:   c.S3Region,
		UseSSL:   !strings.EqualFold(c.S3UseSSL, "off"),
	}
}

// HistoryEnabled は履歴 DB を使うかの判定です。
func (c AppConfig) HistoryEnabled() bool { return c.HistoryDB != "" }

// Credentials は設定済みの認証情報です（CLI フラグで上書きされます）。
func (c AppConfig) Credentials() model.Credentials {
	return model.Credentials{AccessKey: c.AccessKey, SecretKey: c.SecretKey, File: c.GCSCredentialsFile}
}

// Request builds a PublishRequest for version from the configured constants.
func (c AppConfig) Request(version string) model.PublishRequest {
	return model.PublishRequest{
		Version:         version,
		Bucket:          c.Bucket,
		LocalFilePath:   c.File,
		RemoteKeyPrefix: c.KeyPrefix,
		CacheControl:    c.CacheControl,
		ContentType:     c.ContentType,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// envOr は未設定の場合のみ既定値を使います（空文字列の設定は尊重）。
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}
