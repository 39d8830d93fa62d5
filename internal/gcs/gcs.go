// Package gcs fetches uploaded statement files from Google Cloud
// Storage and materializes them as local temp files for the
// extractors, which need real paths (the PDF reader seeks, tesseract
// runs on a file).
package gcs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"cloud.google.com/go/storage"
)

// Storage abstracts the bucket operations the pipeline needs; the CLI
// injects a Client, tests inject a fake.
type Storage interface {
	// Fetch downloads the object bytes at a gs:// URI.
	Fetch(ctx context.Context, uri string) ([]byte, error)

	// Upload stores a local file under the given bucket and object name.
	Upload(ctx context.Context, bucketName, objectName, filePath string) error
}

// IsURI reports whether the path refers to a storage object rather
// than a local file.
func IsURI(s string) bool {
	return strings.HasPrefix(s, "gs://")
}

// ParseURI splits "gs://bucket/path/to/file" into bucket and object.
func ParseURI(uri string) (bucket, object string, err error) {
	if !IsURI(uri) {
		return "", "", fmt.Errorf("ParseURI: invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("ParseURI: invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// Filename extracts the base filename from a gs:// URI, e.g.
// "gs://bucket/folder/file.pdf" yields "file.pdf".
func Filename(uri string) string {
	trimmed := strings.TrimPrefix(uri, "gs://")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) < 2 {
		return trimmed
	}
	return path.Base(parts[1])
}

// Client implements Storage on a shared storage client.
type Client struct {
	client *storage.Client
}

// NewClient creates a Client using Application Default Credentials.
func NewClient(ctx context.Context) (*Client, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewClient: creating storage client: %w", err)
	}
	return &Client{client: client}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Fetch implements Storage.
func (c *Client) Fetch(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Fetch: %w", err)
	}

	rc, err := c.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("Fetch: reading bytes: %w", err)
	}
	return data, nil
}

// Upload implements Storage.
func (c *Client) Upload(ctx context.Context, bucketName, objectName, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("Upload: open file %q: %w", filePath, err)
	}
	defer f.Close()

	w := c.client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("Upload: copy file to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("Upload: finalize upload: %w", err)
	}
	return nil
}

// Materialize downloads a gs:// URI into a temp file carrying the
// object's extension and returns the local path plus a cleanup func.
// A plain local path is returned as-is with a no-op cleanup.
func Materialize(ctx context.Context, st Storage, uri string) (string, func(), error) {
	if !IsURI(uri) {
		return uri, func() {}, nil
	}

	data, err := st.Fetch(ctx, uri)
	if err != nil {
		return "", nil, fmt.Errorf("Materialize: %w", err)
	}

	f, err := os.CreateTemp("", "statement-*"+path.Ext(Filename(uri)))
	if err != nil {
		return "", nil, fmt.Errorf("Materialize: creating temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("Materialize: writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("Materialize: closing temp file: %w", err)
	}

	name := f.Name()
	return name, func() { os.Remove(name) }, nil
}
