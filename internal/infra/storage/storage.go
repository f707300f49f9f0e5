package storage

import (
	"context"
	"errors"
	"io"

	"github.com/kawabatas/bundle-publisher/internal/domain/model"
)

var (
	// ErrUnauthenticated は認証情報が拒否された場合に返します。
	ErrUnauthenticated = errors.New("storage: credentials rejected")
	ErrBucketNotExist  = errors.New("storage: bucket does not exist")
	ErrObjectNotExist  = errors.New("storage: object does not exist")
)

// Provider authenticates against one object-storage service.
type Provider interface {
	Name() string
	Open(ctx context.Context, creds model.Credentials) (Session, error)
}

// Session is an authenticated connection. Bucket never creates missing buckets.
type Session interface {
	Bucket(ctx context.Context, name string) (Bucket, error)
	Close() error
}

// Bucket abstracts the per-object calls used for publishing.
type Bucket interface {
	Name() string
	// PutObject は key を r の内容で上書きします（条件付き書き込みなし）。
	PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// SetCacheControl replaces the object's Cache-Control value.
	SetCacheControl(ctx context.Context, key, value string) error
	SetACL(ctx context.Context, key string, acl model.ACL) error
	Stat(ctx context.Context, key string) (model.ObjectAttrs, error)
	PublicURL(key string) string
}

// ObjectReader is implemented by buckets that can stream an object back.
// Verify はこれを使って公開済みコンテンツの MD5 を突き合わせます。
type ObjectReader interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
