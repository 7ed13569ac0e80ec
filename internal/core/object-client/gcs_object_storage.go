package objectclient

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"cloud.google.com/go/storage"

	"github.com/markdave123-py/damage-detector/internal/core"
)

// GCSClient stores objects in Google Cloud Storage using application default credentials.
type GCSClient struct {
	client *storage.Client
}

func NewGCSClient(ctx context.Context) (*GCSClient, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	log.Println("Connected to Google Cloud Storage successfully")
	return &GCSClient{client: client}, nil
}

func (c *GCSClient) UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (string, error) {
	ctxUpload, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := c.client.Bucket(bucket).Object(key).NewWriter(ctxUpload)
	w.ContentType = contentType

	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("gcs upload failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("gcs upload failed: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key), nil
}

func (c *GCSClient) DeleteFile(ctx context.Context, bucket, key string) error {
	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := c.client.Bucket(bucket).Object(key).Delete(ctxDel); err != nil {
		return fmt.Errorf("gcs delete failed: %w", err)
	}
	return nil
}

func (c *GCSClient) Close() error {
	return c.client.Close()
}

var _ core.ObjectClient = (*GCSClient)(nil)
