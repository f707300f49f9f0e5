package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kawabatas/bundle-publisher/internal/domain/model"
	storageif "github.com/kawabatas/bundle-publisher/internal/infra/storage"
)

func newBucket(t *testing.T) *bucket {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "cdn"), 0755))
	sess, err := (&Store{Root: root}).Open(context.Background(), model.Credentials{})
	require.NoError(t, err)
	b, err := sess.Bucket(context.Background(), "cdn")
	require.NoError(t, err)
	return b.(*bucket)
}

func TestBucketResolution(t *testing.T) {
	ctx := context.Background()
	_, err := (&Store{Root: filepath.Join(t.TempDir(), "missing")}).Open(ctx, model.Credentials{})
	assert.Error(t, err)

	sess, err := (&Store{Root: t.TempDir()}).Open(ctx, model.Credentials{})
	require.NoError(t, err)
	for _, name := range []string{"nope", "", "..", "a/b"} {
		_, err = sess.Bucket(ctx, name)
		assert.ErrorIs(t, err, storageif.ErrBucketNotExist, name)
	}
}

func TestPutSetStat(t *testing.T) {
	ctx := context.Background()
	b := newBucket(t)
	content := []byte("PK\x03\x04 zip bytes")

	require.NoError(t, b.PutObject(ctx, "ios/1.2.3/bundle.zip", bytes.NewReader(content), int64(len(content)), "application/zip"))
	attrs, err := b.Stat(ctx, "ios/1.2.3/bundle.zip")
	require.NoError(t, err)
	assert.Equal(t, model.ObjectAttrs{Key: "ios/1.2.3/bundle.zip", Size: int64(len(content)), ContentType: "application/zip", ACL: model.ACLPrivate}, attrs)

	require.NoError(t, b.SetCacheControl(ctx, "ios/1.2.3/bundle.zip", "max-age=15, must-revalidate"))
	require.NoError(t, b.SetACL(ctx, "ios/1.2.3/bundle.zip", model.ACLPublicRead))
	attrs, err = b.Stat(ctx, "ios/1.2.3/bundle.zip")
	require.NoError(t, err)
	assert.Equal(t, "max-age=15, must-revalidate", attrs.CacheControl)
	assert.Equal(t, model.ACLPublicRead, attrs.ACL)

	rc, err := b.Open(ctx, "ios/1.2.3/bundle.zip")
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestOverwriteDropsPriorMetadata(t *testing.T) {
	ctx := context.Background()
	b := newBucket(t)
	key := "ios/1.0/bundle.zip"

	require.NoError(t, b.PutObject(ctx, key, strings.NewReader("old"), 3, "application/zip"))
	require.NoError(t, b.SetCacheControl(ctx, key, "max-age=60"))
	require.NoError(t, b.SetACL(ctx, key, model.ACLPublicRead))

	require.NoError(t, b.PutObject(ctx, key, strings.NewReader("newer"), 5, "application/zip"))
	attrs, err := b.Stat(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), attrs.Size)
	assert.Empty(t, attrs.CacheControl)
	assert.Equal(t, model.ACLPrivate, attrs.ACL)
}

func TestMissingObject(t *testing.T) {
	ctx := context.Background()
	b := newBucket(t)
	assert.ErrorIs(t, b.SetCacheControl(ctx, "ios/x/bundle.zip", "max-age=1"), storageif.ErrObjectNotExist)
	assert.ErrorIs(t, b.SetACL(ctx, "ios/x/bundle.zip", model.ACLPublicRead), storageif.ErrObjectNotExist)
	_, err := b.Stat(ctx, "ios/x/bundle.zip")
	assert.ErrorIs(t, err, storageif.ErrObjectNotExist)
}

func TestRejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	b := newBucket(t)
	for _, key := range []string{"../evil", "/abs", ".meta/x"} {
		assert.Error(t, b.PutObject(ctx, key, strings.NewReader("x"), 1, ""), key)
	}
}

func TestShortWrite(t *testing.T) {
	b := newBucket(t)
	err := b.PutObject(context.Background(), "k", strings.NewReader("abc"), 10, "")
	assert.ErrorContains(t, err, "short write")
	_, err = b.Stat(context.Background(), "k")
	assert.ErrorIs(t, err, storageif.ErrObjectNotExist)
}
