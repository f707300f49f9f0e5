package usecase

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/kawabatas/bundle-publisher/internal/domain/model"
	"github.com/kawabatas/bundle-publisher/internal/domain/repository"
	storageif "github.com/kawabatas/bundle-publisher/internal/infra/storage"
	"github.com/kawabatas/bundle-publisher/internal/util/clock"
)

const defaultContentType = "application/octet-stream"

// Publisher uploads one versioned artifact, sets its Cache-Control and makes it public-read.
// 各ステップは独立したリモート呼び出しで、最初の失敗で中断します（リトライなし）。
type Publisher struct {
	provider storageif.Provider
	history  repository.PublicationRepository
}

type Option func(*Publisher)

// WithHistory records every successful publish into r.
func WithHistory(r repository.PublicationRepository) Option {
	return func(p *Publisher) { p.history = r }
}

func NewPublisher(provider storageif.Provider, opts ...Option) *Publisher {
	p := &Publisher{provider: provider}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Publish runs: validate -> open local file -> authenticate -> resolve bucket ->
// upload -> set cache-control -> set public-read.
// ローカルファイルの検証に失敗した場合、リモート呼び出しは一切行いません。
func (p *Publisher) Publish(ctx context.Context, req model.PublishRequest, creds model.Credentials) (model.Publication, error) {
	if err := req.Validate(); err != nil {
		return model.Publication{}, newError(KindInvalidRequest, "validate", "", err)
	}
	f, size, err := openLocal(req.LocalFilePath)
	if err != nil {
		return model.Publication{}, err
	}
	defer f.Close()

	sess, b, err := p.resolve(ctx, req, creds)
	if err != nil {
		return model.Publication{}, err
	}
	defer closeSession(ctx, sess)

	key := req.ObjectKey()
	ct := contentType(req)
	log := slog.With(slog.String("provider", p.provider.Name()), slog.String("bucket", b.Name()), slog.String("key", key))

	h := md5.New()
	if err := b.PutObject(ctx, key, io.TeeReader(f, h), size, ct); err != nil {
		return model.Publication{}, newError(KindUploadFailed, "upload", key, err)
	}
	log.InfoContext(ctx, "publish: uploaded", slog.Int64("size", size))

	// ここから ACL 設定までの間に中断すると、オブジェクトは上書き直後の状態（private）で残る
	if err := b.SetCacheControl(ctx, key, req.CacheControl); err != nil {
		return model.Publication{}, newError(KindMetadataSetFailed, "set cache-control", key, err)
	}
	log.DebugContext(ctx, "publish: cache-control set", slog.String("cache_control", req.CacheControl))

	if err := b.SetACL(ctx, key, model.ACLPublicRead); err != nil {
		return model.Publication{}, newError(KindAclSetFailed, "set acl", key, err)
	}
	log.DebugContext(ctx, "publish: acl set", slog.String("acl", string(model.ACLPublicRead)))

	pub := model.Publication{
		Provider:     p.provider.Name(),
		Bucket:       b.Name(),
		Key:          key,
		Version:      req.Version,
		Size:         size,
		MD5:          hex.EncodeToString(h.Sum(nil)),
		ContentType:  ct,
		CacheControl: req.CacheControl,
		ACL:          model.ACLPublicRead,
		URL:          b.PublicURL(key),
		PublishedAt:  clock.UTCNow(),
	}
	if p.history != nil {
		// リモートは確定済みなので、履歴の保存失敗は publish の失敗にしない
		if err := p.history.Add(ctx, &pub); err != nil {
			log.WarnContext(ctx, "publish: history record failed", slog.Any("error", err))
		}
	}
	log.InfoContext(ctx, "publish: done", slog.String("url", pub.URL), slog.String("md5", pub.MD5))
	return pub, nil
}

// Plan validates req and the local file and returns the receipt Publish would produce,
// without contacting the provider.
func (p *Publisher) Plan(req model.PublishRequest) (model.Publication, error) {
	if err := req.Validate(); err != nil {
		return model.Publication{}, newError(KindInvalidRequest, "validate", "", err)
	}
	f, size, err := openLocal(req.LocalFilePath)
	if err != nil {
		return model.Publication{}, err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return model.Publication{}, newError(KindLocalFileUnreadable, "read", "", err)
	}
	return model.Publication{
		Provider:     p.provider.Name(),
		Bucket:       req.Bucket,
		Key:          req.ObjectKey(),
		Version:      req.Version,
		Size:         size,
		MD5:          hex.EncodeToString(h.Sum(nil)),
		ContentType:  contentType(req),
		CacheControl: req.CacheControl,
		ACL:          model.ACLPublicRead,
	}, nil
}

// Verify reads back the published object and checks its Cache-Control and ACL.
// 履歴があれば同じキーの最新記録とサイズを照合し、取得可能なプロバイダでは MD5 も照合します。
func (p *Publisher) Verify(ctx context.Context, req model.PublishRequest, creds model.Credentials) (model.Verification, error) {
	if err := req.Validate(); err != nil {
		return model.Verification{}, newError(KindInvalidRequest, "validate", "", err)
	}
	sess, b, err := p.resolve(ctx, req, creds)
	if err != nil {
		return model.Verification{}, err
	}
	defer closeSession(ctx, sess)

	key := req.ObjectKey()
	attrs, err := b.Stat(ctx, key)
	if err != nil {
		return model.Verification{}, fmt.Errorf("stat %s: %w", key, err)
	}
	v := model.Verification{Attrs: attrs}

	var errs []error
	if attrs.CacheControl != req.CacheControl {
		errs = append(errs, mismatch("cache-control", req.CacheControl, attrs.CacheControl))
	}
	if attrs.ACL != model.ACLPublicRead {
		errs = append(errs, mismatch("acl", string(model.ACLPublicRead), string(attrs.ACL)))
	}

	rec, err := p.recorded(ctx, req.Version, b.Name(), key)
	if err != nil {
		return v, err
	}
	if rec == nil {
		return v, errors.Join(errs...)
	}
	v.Recorded = rec
	if attrs.Size != rec.Size {
		errs = append(errs, mismatch("size", fmt.Sprint(rec.Size), fmt.Sprint(attrs.Size)))
	}
	if r, ok := b.(storageif.ObjectReader); ok && rec.MD5 != "" {
		sum, err := remoteMD5(ctx, r, key)
		if err != nil {
			return v, fmt.Errorf("read %s: %w", key, err)
		}
		v.MD5 = sum
		if sum != rec.MD5 {
			errs = append(errs, mismatch("md5", rec.MD5, sum))
		}
	}
	return v, errors.Join(errs...)
}

// recorded returns the latest history row for version when it targets bucket/key.
func (p *Publisher) recorded(ctx context.Context, version, bucket, key string) (*model.Publication, error) {
	if p.history == nil {
		return nil, nil
	}
	rec, err := p.history.LatestByVersion(ctx, version)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history lookup: %w", err)
	}
	// 同じバージョンでも別バケット・別プレフィックスへの publish は照合対象外
	if rec.Bucket != bucket || rec.Key != key {
		return nil, nil
	}
	return &rec, nil
}

func remoteMD5(ctx context.Context, r storageif.ObjectReader, key string) (string, error) {
	rc, err := r.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	h := md5.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (p *Publisher) resolve(ctx context.Context, req model.PublishRequest, creds model.Credentials) (storageif.Session, storageif.Bucket, error) {
	sess, err := p.provider.Open(ctx, creds)
	if err != nil {
		return nil, nil, newError(KindAuthenticationFailed, "authenticate", "", err)
	}
	b, err := sess.Bucket(ctx, req.Bucket)
	if err != nil {
		closeSession(ctx, sess)
		kind := KindBucketNotFound
		if errors.Is(err, storageif.ErrUnauthenticated) {
			kind = KindAuthenticationFailed
		}
		return nil, nil, newError(kind, "get bucket", "", err)
	}
	return sess, b, nil
}

func openLocal(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, newError(KindLocalFileNotFound, "open", "", err)
		}
		return nil, 0, newError(KindLocalFileUnreadable, "open", "", err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, newError(KindLocalFileUnreadable, "stat", "", err)
	}
	if !fi.Mode().IsRegular() {
		_ = f.Close()
		return nil, 0, newError(KindLocalFileUnreadable, "stat", "", fmt.Errorf("%s is not a regular file", path))
	}
	return f, fi.Size(), nil
}

func closeSession(ctx context.Context, sess storageif.Session) {
	if err := sess.Close(); err != nil {
		slog.WarnContext(ctx, "storage session close failed", slog.Any("error", err))
	}
}

// contentType は明示指定がなければ拡張子から推定します。
func contentType(req model.PublishRequest) string {
	if req.ContentType != "" {
		return req.ContentType
	}
	ext := strings.ToLower(filepath.Ext(req.LocalFilePath))
	if ext == ".zip" {
		return "application/zip"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return defaultContentType
}
