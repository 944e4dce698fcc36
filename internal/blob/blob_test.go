package blob

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "learned_descriptions")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "learned_descriptions", []byte(`[["shell",{}]]`)))
	got, err := s.Get(ctx, "learned_descriptions")
	require.NoError(t, err)
	assert.Equal(t, `[["shell",{}]]`, string(got))

	require.NoError(t, s.Put(ctx, "learned_descriptions", []byte(`[]`)))
	got, err = s.Get(ctx, "learned_descriptions")
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreCopiesData(t *testing.T) {
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(context.Background(), "k", buf))
	buf[0] = 'x'

	got, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	exerciseStore(t, s)
}

func TestFileStoreRejectsPathKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "a/b", ".."} {
		assert.Error(t, s.Put(context.Background(), key, []byte("x")), key)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "blobs.db"))
	require.NoError(t, err)
	defer s.Close()
	exerciseStore(t, s)
}

type MockObjectClient struct {
	DownloadFunc    func(ctx context.Context, bucket, objectName string) ([]byte, error)
	UploadBytesFunc func(ctx context.Context, bucket, objectName string, data []byte, contentType string) error
}

func (m *MockObjectClient) Download(ctx context.Context, bucket, objectName string) ([]byte, error) {
	return m.DownloadFunc(ctx, bucket, objectName)
}

func (m *MockObjectClient) UploadBytes(ctx context.Context, bucket, objectName string, data []byte, contentType string) error {
	return m.UploadBytesFunc(ctx, bucket, objectName, data, contentType)
}

func TestGCSStore(t *testing.T) {
	objects := map[string][]byte{}
	client := &MockObjectClient{
		DownloadFunc: func(ctx context.Context, bucket, objectName string) ([]byte, error) {
			data, ok := objects[bucket+"/"+objectName]
			if !ok {
				return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, objectName, storage.ErrObjectNotExist)
			}
			return data, nil
		},
		UploadBytesFunc: func(ctx context.Context, bucket, objectName string, data []byte, contentType string) error {
			assert.Equal(t, "application/json", contentType)
			objects[bucket+"/"+objectName] = data
			return nil
		},
	}

	s := NewGCSStore(client, "finance-state", "extractor")
	exerciseStore(t, s)
	assert.Contains(t, objects, "finance-state/extractor/learned_descriptions.json")
}
