package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/kawabatas/bundle-publisher/internal/domain/model"
	storageif "github.com/kawabatas/bundle-publisher/internal/infra/storage"
)

// metaDir はオブジェクトのメタデータ（サイドカー JSON）を置くディレクトリ名です。
const metaDir = ".meta"

// Store implements storage.Provider on a local directory.
// 各バケットは Root 直下のディレクトリで、事前に作成されている必要があります。
// 認証情報は使いません。
type Store struct {
	Root string
}

var (
	_ storageif.Provider     = (*Store)(nil)
	_ storageif.ObjectReader = (*bucket)(nil)
)

func (s *Store) Name() string { return "local" }

func (s *Store) Open(ctx context.Context, creds model.Credentials) (storageif.Session, error) {
	fi, err := os.Stat(s.Root)
	if err != nil {
		return nil, fmt.Errorf("local root: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("local root %s is not a directory", s.Root)
	}
	return session{root: s.Root}, nil
}

type session struct{ root string }

func (s session) Close() error { return nil }

func (s session) Bucket(ctx context.Context, name string) (storageif.Bucket, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid bucket name %q: %w", name, storageif.ErrBucketNotExist)
	}
	dir := filepath.Join(s.root, name)
	fi, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !fi.IsDir()) {
		return nil, fmt.Errorf("bucket %s: %w", name, storageif.ErrBucketNotExist)
	}
	if err != nil {
		return nil, err
	}
	return &bucket{name: name, dir: dir}, nil
}

type bucket struct {
	name string
	dir  string
}

type sidecar struct {
	ContentType  string    `json:"content_type"`
	CacheControl string    `json:"cache_control,omitempty"`
	ACL          model.ACL `json:"acl"`
}

func (b *bucket) Name() string { return b.name }

func (b *bucket) objectPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	if clean == metaDir || strings.HasPrefix(clean, metaDir+string(filepath.Separator)) {
		return "", fmt.Errorf("object key %q is reserved", key)
	}
	return filepath.Join(b.dir, clean), nil
}

func (b *bucket) metaPath(key string) string {
	return filepath.Join(b.dir, metaDir, filepath.Clean(filepath.FromSlash(key))+".json")
}

func (b *bucket) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dest, err := b.objectPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	// tmp に書いてから rename で置き換える
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return err
	}
	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && size >= 0 && n != size {
		err = fmt.Errorf("short write: wrote %d of %d bytes", n, size)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	// 上書き時は以前のメタデータを引き継がない
	return b.writeMeta(key, sidecar{ContentType: contentType, ACL: model.ACLPrivate})
}

func (b *bucket) SetCacheControl(ctx context.Context, key, value string) error {
	meta, err := b.readMeta(key)
	if err != nil {
		return err
	}
	meta.CacheControl = value
	return b.writeMeta(key, meta)
}

func (b *bucket) SetACL(ctx context.Context, key string, acl model.ACL) error {
	switch acl {
	case model.ACLPrivate, model.ACLPublicRead:
	default:
		return fmt.Errorf("unsupported acl %q", acl)
	}
	meta, err := b.readMeta(key)
	if err != nil {
		return err
	}
	meta.ACL = acl
	return b.writeMeta(key, meta)
}

func (b *bucket) Stat(ctx context.Context, key string) (model.ObjectAttrs, error) {
	p, err := b.objectPath(key)
	if err != nil {
		return model.ObjectAttrs{}, err
	}
	fi, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return model.ObjectAttrs{}, fmt.Errorf("%s: %w", key, storageif.ErrObjectNotExist)
	}
	if err != nil {
		return model.ObjectAttrs{}, err
	}
	meta, err := b.readMeta(key)
	if err != nil {
		return model.ObjectAttrs{}, err
	}
	return model.ObjectAttrs{
		Key:          key,
		Size:         fi.Size(),
		ContentType:  meta.ContentType,
		CacheControl: meta.CacheControl,
		ACL:          meta.ACL,
	}, nil
}

// Open returns a reader of the stored object content.
func (b *bucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	p, err := b.objectPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, storageif.ErrObjectNotExist)
	}
	return f, err
}

func (b *bucket) PublicURL(key string) string {
	abs, err := filepath.Abs(filepath.Join(b.dir, filepath.FromSlash(key)))
	if err != nil {
		abs = filepath.Join(b.dir, filepath.FromSlash(key))
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}

func (b *bucket) readMeta(key string) (sidecar, error) {
	if _, err := b.objectPath(key); err != nil {
		return sidecar{}, err
	}
	raw, err := os.ReadFile(b.metaPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return sidecar{}, fmt.Errorf("%s: %w", key, storageif.ErrObjectNotExist)
	}
	if err != nil {
		return sidecar{}, err
	}
	var m sidecar
	if err := json.Unmarshal(raw, &m); err != nil {
		return sidecar{}, fmt.Errorf("decode metadata for %s: %w", key, err)
	}
	return m, nil
}

func (b *bucket) writeMeta(key string, m sidecar) error {
	p := b.metaPath(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(p, raw, 0644)
}
