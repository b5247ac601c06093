package publish

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/shoreline-batch/internal/config"
)

type fakeStore struct {
	buckets   map[string]bool
	made      []string
	puts      map[string]string
	opts      minio.PutObjectOptions
	existsErr error
	putErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{buckets: map[string]bool{}, puts: map[string]string{}}
}

func (f *fakeStore) BucketExists(_ context.Context, bucket string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.buckets[bucket], nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.buckets[bucket] = true
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeStore) FPutObject(_ context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	info, err := os.Stat(filePath)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.puts[bucket+"/"+object] = filePath
	f.opts = opts
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: info.Size()}, nil
}

func zipFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "02_2023_S2.zip")
	require.NoError(t, os.WriteFile(path, []byte("PK"), 0644))
	return path
}

func TestPublish_CreatesBucket(t *testing.T) {
	store := newFakeStore()
	p, err := New(store, config.PublishConfig{Bucket: "shorelines", Prefix: "/runs/"}, nil)
	require.NoError(t, err)

	path := zipFile(t)
	key, err := p.Publish(context.Background(), path, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "runs/02_2023_S2.zip", key)
	assert.Equal(t, []string{"shorelines"}, store.made)
	assert.Equal(t, path, store.puts["shorelines/runs/02_2023_S2.zip"])
	assert.Equal(t, "application/zip", store.opts.ContentType)
	assert.Equal(t, "run-1", store.opts.UserMetadata["run-id"])

	_, err = p.Publish(context.Background(), path, "run-2")
	require.NoError(t, err)
	assert.Len(t, store.made, 1, "existing bucket is reused")
}

func TestPublish_Errors(t *testing.T) {
	boom := errors.New("boom")

	store := newFakeStore()
	store.existsErr = boom
	p, _ := New(store, config.PublishConfig{Bucket: "b"}, nil)
	_, err := p.Publish(context.Background(), zipFile(t), "r")
	assert.ErrorIs(t, err, boom)

	store = newFakeStore()
	store.putErr = boom
	p, _ = New(store, config.PublishConfig{Bucket: "b"}, nil)
	_, err = p.Publish(context.Background(), zipFile(t), "r")
	assert.ErrorIs(t, err, boom)
}

func TestKey(t *testing.T) {
	p, err := New(newFakeStore(), config.PublishConfig{Bucket: "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "x.zip", p.Key("/data/procesado/x.zip"))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, config.PublishConfig{Bucket: "b"}, nil)
	assert.Error(t, err)
	_, err = New(newFakeStore(), config.PublishConfig{Bucket: " "}, nil)
	assert.Error(t, err)
}

func TestNewMinIOClient(t *testing.T) {
	_, err := NewMinIOClient(config.PublishConfig{})
	assert.Error(t, err)

	client, err := NewMinIOClient(config.PublishConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", client.EndpointURL().Host)

	var _ ObjectStore = client
}
