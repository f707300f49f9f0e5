package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kawabatas/bundle-publisher/internal/domain/model"
	storageif "github.com/kawabatas/bundle-publisher/internal/infra/storage"
)

const allUsersURI = "http://acs.amazonaws.com/groups/global/AllUsers"

// Config は S3 互換エンドポイントの接続設定です。
type Config struct {
	Endpoint string // host[:port], e.g. s3.amazonaws.com
	Region   string
	UseSSL   bool
}

// Provider implements storage.Provider for S3 and S3-compatible services.
type Provider struct {
	Config Config
}

var (
	_ storageif.Provider     = (*Provider)(nil)
	_ storageif.ObjectReader = (*bucket)(nil)
)

func (p *Provider) Name() string { return "s3" }

// Open builds a client with static V4 credentials. minio-go は遅延認証のため、
// 認証情報が実際に検証されるのは Bucket の解決時です。
func (p *Provider) Open(ctx context.Context, creds model.Credentials) (storageif.Session, error) {
	endpoint := strings.TrimSpace(p.Config.Endpoint)
	if endpoint == "" {
		return nil, errors.New("s3 endpoint is required")
	}
	access := strings.TrimSpace(creds.AccessKey)
	secret := strings.TrimSpace(creds.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required: %w", storageif.ErrUnauthenticated)
	}
	region := strings.TrimSpace(p.Config.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: p.Config.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &session{client: client}, nil
}

type session struct {
	client *minio.Client
}

func (s *session) Close() error { return nil }

func (s *session) Bucket(ctx context.Context, name string) (storageif.Bucket, error) {
	exists, err := s.client.BucketExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("bucket %s: %w", name, mapErr(err))
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s: %w", name, storageif.ErrBucketNotExist)
	}
	return &bucket{client: s.client, name: name}, nil
}

type bucket struct {
	client *minio.Client
	name   string
}

func (b *bucket) Name() string { return b.name }

func (b *bucket) PutObject(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, b.name, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return mapErr(err)
}

// SetCacheControl rewrites the object onto itself with the REPLACE metadata directive.
// S3 のコピーは ACL を引き継がないため、この時点で ACL は private に戻ります。
func (b *bucket) SetCacheControl(ctx context.Context, key, value string) error {
	info, err := b.client.StatObject(ctx, b.name, key, minio.StatObjectOptions{})
	if err != nil {
		return mapErr(err)
	}
	meta := map[string]string{"Cache-Control": value}
	if info.ContentType != "" {
		meta["Content-Type"] = info.ContentType
	}
	return b.replaceMetadata(ctx, key, meta)
}

// SetACL applies a canned ACL via self-copy, keeping content-type and cache-control.
func (b *bucket) SetACL(ctx context.Context, key string, acl model.ACL) error {
	switch acl {
	case model.ACLPrivate, model.ACLPublicRead:
	default:
		return fmt.Errorf("unsupported acl %q", acl)
	}
	info, err := b.client.StatObject(ctx, b.name, key, minio.StatObjectOptions{})
	if err != nil {
		return mapErr(err)
	}
	meta := map[string]string{"x-amz-acl": string(acl)}
	if info.ContentType != "" {
		meta["Content-Type"] = info.ContentType
	}
	if cc := info.Metadata.Get("Cache-Control"); cc != "" {
		meta["Cache-Control"] = cc
	}
	return b.replaceMetadata(ctx, key, meta)
}

func (b *bucket) replaceMetadata(ctx context.Context, key string, meta map[string]string) error {
	dst := minio.CopyDestOptions{
		Bucket:          b.name,
		Object:          key,
		ReplaceMetadata: true,
		UserMetadata:    meta,
	}
	src := minio.CopySrcOptions{Bucket: b.name, Object: key}
	_, err := b.client.CopyObject(ctx, dst, src)
	return mapErr(err)
}

func (b *bucket) Stat(ctx context.Context, key string) (model.ObjectAttrs, error) {
	info, err := b.client.StatObject(ctx, b.name, key, minio.StatObjectOptions{})
	if err != nil {
		return model.ObjectAttrs{}, mapErr(err)
	}
	acl, err := b.client.GetObjectACL(ctx, b.name, key)
	if err != nil {
		return model.ObjectAttrs{}, mapErr(err)
	}
	return model.ObjectAttrs{
		Key:          key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		CacheControl: info.Metadata.Get("Cache-Control"),
		ACL:          cannedACL(acl.Grant),
	}, nil
}

// Open streams the object back. Stat を先に呼んで NoSuchKey をここで返します。
func (b *bucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.name, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, mapErr(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, mapErr(err)
	}
	return obj, nil
}

func (b *bucket) PublicURL(key string) string {
	u := *b.client.EndpointURL()
	u.Path = "/" + b.name + "/" + key
	return u.String()
}

// cannedACL は AllUsers への READ 付与があれば public-read とみなします。
func cannedACL(grants []minio.Grant) model.ACL {
	for _, g := range grants {
		if g.Grantee.URI == allUsersURI && (g.Permission == "READ" || g.Permission == "FULL_CONTROL") {
			return model.ACLPublicRead
		}
	}
	return model.ACLPrivate
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied", "InvalidToken", "ExpiredToken":
		return fmt.Errorf("%w: %v", storageif.ErrUnauthenticated, err)
	case "NoSuchBucket":
		return fmt.Errorf("%w: %v", storageif.ErrBucketNotExist, err)
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("%w: %v", storageif.ErrObjectNotExist, err)
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %v", storageif.ErrUnauthenticated, err)
	}
	return err
}
