package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// uploadTimeout bounds a single object write.
const uploadTimeout = 2 * time.Minute

// Client wraps a shared storage client. It assumes Application Default
// Credentials are configured (gcloud auth application-default login).
type Client struct {
	client *storage.Client
}

// NewClient creates a Client backed by a new storage client.
func NewClient(ctx context.Context) (*Client, error) {
	c, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Client{client: c}, nil
}

// Close releases the underlying storage client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// UploadFile uploads a local file to bucket under objectName.
func (c *Client) UploadFile(ctx context.Context, bucket, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open file %q: %w", filePath, err)
	}
	defer f.Close()

	return c.Upload(ctx, bucket, objectName, f, ContentTypeFor(filePath))
}

// Upload streams r into bucket/objectName.
func (c *Client) Upload(ctx context.Context, bucket, objectName string, r io.Reader, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := c.client.Bucket(bucket).Object(objectName).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}

	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}

	// Close finalizes the upload.
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload gs://%s/%s: %w", bucket, objectName, err)
	}
	return nil
}

// UploadBytes is Upload for an in-memory payload.
func (c *Client) UploadBytes(ctx context.Context, bucket, objectName string, data []byte, contentType string) error {
	return c.Upload(ctx, bucket, objectName, bytes.NewReader(data), contentType)
}

// Download reads bucket/objectName. A missing object yields an error that
// matches storage.ErrObjectNotExist.
func (c *Client) Download(ctx context.Context, bucket, objectName string) ([]byte, error) {
	r, err := c.client.Bucket(bucket).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gs://%s/%s: %w", bucket, objectName, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", bucket, objectName, err)
	}
	return data, nil
}

// FetchURI downloads the object named by a gs:// URI.
func (c *Client) FetchURI(ctx context.Context, gcsURI string) ([]byte, error) {
	bucket, objectName, err := ParseURI(gcsURI)
	if err != nil {
		return nil, err
	}
	return c.Download(ctx, bucket, objectName)
}

// ParseURI splits gs://bucket/path/to/object into bucket and object name.
func ParseURI(gcsURI string) (bucket, objectName string, err error) {
	if !strings.HasPrefix(gcsURI, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", gcsURI)
	}

	parts := strings.SplitN(strings.TrimPrefix(gcsURI, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", gcsURI)
	}
	return parts[0], parts[1], nil
}

// URI builds a gs:// URI.
func URI(bucket, objectName string) string {
	return "gs://" + bucket + "/" + objectName
}

// FilenameFromURI extracts the filename from a GCS URI.
// e.g., "gs://bucket/folder/statement.csv" → "statement.csv"
func FilenameFromURI(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")

	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// ContentTypeFor guesses the content type of a statement file by extension.
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "text/plain"
	}
}
