package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ACL は オブジェクト単位のアクセスポリシー（canned ACL）です。
type ACL string

const (
	ACLPrivate    ACL = "private"
	ACLPublicRead ACL = "public-read"
)

// Credentials はストレージサービスへの認証情報です。
// S3 互換サービスは AccessKey/SecretKey、GCS は File（サービスアカウント JSON）を使います。
type Credentials struct {
	AccessKey string
	SecretKey string
	File      string
}

// PublishRequest は 1 回のアップロード＋タグ付け操作の入力です。
type PublishRequest struct {
	Version         string // パスセグメントにそのまま使う
	Bucket          string
	LocalFilePath   string
	RemoteKeyPrefix string // e.g. "ios/"
	CacheControl    string // e.g. "max-age=15, must-revalidate"
	ContentType     string // 空なら拡張子から推定
}

// FileName returns the base name of the local file.
func (r PublishRequest) FileName() string { return filepath.Base(r.LocalFilePath) }

// ObjectKey composes prefix + version + "/" + filename.
// No validation happens here: an empty version yields "ios//bundle.zip".
func (r PublishRequest) ObjectKey() string {
	return r.RemoteKeyPrefix + r.Version + "/" + r.FileName()
}

// Validate checks the request before any file or network access.
func (r PublishRequest) Validate() error {
	var errs []error
	v := strings.TrimSpace(r.Version)
	switch {
	case v == "":
		errs = append(errs, errors.New("version is required"))
	case v != r.Version:
		errs = append(errs, fmt.Errorf("version %q has surrounding whitespace", r.Version))
	case strings.ContainsAny(v, `/\`):
		errs = append(errs, fmt.Errorf("version %q must not contain path separators", r.Version))
	case v == "." || v == "..":
		errs = append(errs, fmt.Errorf("version %q is not a valid path segment", r.Version))
	}
	if strings.TrimSpace(r.Bucket) == "" {
		errs = append(errs, errors.New("bucket is required"))
	}
	if strings.TrimSpace(r.LocalFilePath) == "" {
		errs = append(errs, errors.New("local file path is required"))
	}
	if strings.TrimSpace(r.CacheControl) == "" {
		errs = append(errs, errors.New("cache-control is required"))
	}
	return errors.Join(errs...)
}

// Publication は公開済みオブジェクトの受領記録です（履歴テーブルの 1 行）。
type Publication struct {
	ID           int64     `json:"id"`
	Provider     string    `json:"provider"`
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	Version      string    `json:"version"`
	Size         int64     `json:"size"`
	MD5          string    `json:"md5"`
	ContentType  string    `json:"content_type"`
	CacheControl string    `json:"cache_control"`
	ACL          ACL       `json:"acl"`
	URL          string    `json:"url"`
	PublishedAt  time.Time `json:"published_at"`
}

// ObjectAttrs are the remote attributes of one stored object.
type ObjectAttrs struct {
	Key          string
	Size         int64
	ContentType  string
	CacheControl string
	ACL          ACL
}

// Verification は公開済みオブジェクトの確認結果です。
type Verification struct {
	Attrs ObjectAttrs
	// Recorded is the latest history row for the same bucket and key, if any.
	Recorded *Publication
	// MD5 of the remote content; empty when the provider cannot stream objects back
	// or there is no recorded publish to compare with.
	MD5 string
}
