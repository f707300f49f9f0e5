package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kawabatas/bundle-publisher/internal/domain/model"
	storageif "github.com/kawabatas/bundle-publisher/internal/infra/storage"
)

// Provider implements storage.Provider using the GCS client.
// 1 回の publish で 1 クライアントを生成し、Session.Close で閉じます。
type Provider struct {
	// Endpoint はエミュレータ等への接続先（空なら本番）。
	Endpoint string
}

var (
	_ storageif.Provider     = (*Provider)(nil)
	_ storageif.ObjectReader = (*bucket)(nil)
)

func (p *Provider) Name() string { return "gcs" }

// Open authenticates with creds.File (service-account JSON) or, when empty,
// Application Default Credentials. 匿名接続はエミュレータ向けで、鍵も ADC も無いときだけ。
func (p *Provider) Open(ctx context.Context, creds model.Credentials) (storageif.Session, error) {
	var opts []option.ClientOption
	if p.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(p.Endpoint))
	}
	switch authMode(p.Endpoint, creds.File) {
	case authFile:
		opts = append(opts, option.WithCredentialsFile(creds.File))
	case authNone:
		opts = append(opts, option.WithoutAuthentication())
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", storageif.ErrUnauthenticated, err)
	}
	return &session{client: client}, nil
}

type auth int

const (
	authADC auth = iota
	authFile
	authNone
)

// authMode: 鍵ファイルは endpoint の有無に関わらず常に使う。
func authMode(endpoint, file string) auth {
	switch {
	case file != "":
		return authFile
	case endpoint != "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "":
		return authNone
	default:
		return authADC
	}
}

type session struct {
	client *storage.Client
}

func (s *session) Close() error { return s.client.Close() }

func (s *session) Bucket(ctx context.Context, name string) (storageif.Bucket, error) {
	h := s.client.Bucket(name)
	if _, err := h.Attrs(ctx); err != nil {
		return nil, fmt.Errorf("bucket %s: %w", name, mapErr(err))
	}
	return &bucket{handle: h, name: name}, nil
}

type bucket struct {
	handle *storage.BucketHandle
	name   string
}

func (b *bucket) Name() string { return b.name }

func (b *bucket) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wc := b.handle.Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, r); err != nil {
		// Close 前に cancel してアップロードを中断する
		cancel()
		_ = wc.Close()
		return mapErr(err)
	}
	if err := wc.Close(); err != nil {
		return mapErr(err)
	}
	slog.DebugContext(ctx, "gcs: object written", slog.String("bucket", b.name), slog.String("key", key), slog.Int64("size", wc.Attrs().Size))
	return nil
}

func (b *bucket) SetCacheControl(ctx context.Context, key, value string) error {
	_, err := b.handle.Object(key).Update(ctx, storage.ObjectAttrsToUpdate{CacheControl: value})
	return mapErr(err)
}

func (b *bucket) SetACL(ctx context.Context, key string, acl model.ACL) error {
	h := b.handle.Object(key).ACL()
	switch acl {
	case model.ACLPublicRead:
		return mapErr(h.Set(ctx, storage.AllUsers, storage.RoleReader))
	case model.ACLPrivate:
		err := h.Delete(ctx, storage.AllUsers)
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil
		}
		return mapErr(err)
	default:
		return fmt.Errorf("unsupported acl %q", acl)
	}
}

func (b *bucket) Stat(ctx context.Context, key string) (model.ObjectAttrs, error) {
	attrs, err := b.handle.Object(key).Attrs(ctx)
	if err != nil {
		return model.ObjectAttrs{}, mapErr(err)
	}
	return model.ObjectAttrs{
		Key:          key,
		Size:         attrs.Size,
		ContentType:  attrs.ContentType,
		CacheControl: attrs.CacheControl,
		ACL:          cannedACL(attrs.ACL),
	}, nil
}

// Open streams the object back for checksum verification.
func (b *bucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := b.handle.Object(key).NewReader(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return r, nil
}

func (b *bucket) PublicURL(key string) string {
	u := url.URL{Scheme: "https", Host: "storage.googleapis.com", Path: "/" + b.name + "/" + key}
	return u.String()
}

func cannedACL(rules []storage.ACLRule) model.ACL {
	for _, r := range rules {
		if r.Entity == storage.AllUsers && (r.Role == storage.RoleReader || r.Role == storage.RoleOwner) {
			return model.ACLPublicRead
		}
	}
	return model.ACLPrivate
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrBucketNotExist):
		return fmt.Errorf("%w: %v", storageif.ErrBucketNotExist, err)
	case errors.Is(err, storage.ErrObjectNotExist):
		return fmt.Errorf("%w: %v", storageif.ErrObjectNotExist, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", storageif.ErrUnauthenticated, err)
		}
	}
	return err
}
