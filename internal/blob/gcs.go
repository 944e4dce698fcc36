package blob

import (
	"context"
	"errors"
	"path"

	"cloud.google.com/go/storage"
)

// ObjectClient is the subset of gcsuploader.Client used by GCSStore.
type ObjectClient interface {
	Download(ctx context.Context, bucket, objectName string) ([]byte, error)
	UploadBytes(ctx context.Context, bucket, objectName string, data []byte, contentType string) error
}

// GCSStore keeps each key as an object under bucket/prefix.
type GCSStore struct {
	client ObjectClient
	bucket string
	prefix string
}

// NewGCSStore creates a GCSStore. prefix may be empty.
func NewGCSStore(client ObjectClient, bucket, prefix string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *GCSStore) object(key string) string {
	name := key
	if path.Ext(name) == "" {
		name += ".json"
	}
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Get implements Store.
func (s *GCSStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Download(ctx, s.bucket, s.object(key))
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Put implements Store.
func (s *GCSStore) Put(ctx context.Context, key string, data []byte) error {
	return s.client.UploadBytes(ctx, s.bucket, s.object(key), data, "application/json")
}

var _ Store = (*GCSStore)(nil)
