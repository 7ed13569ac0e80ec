package objectclient

import (
	"context"
	"fmt"

	"github.com/markdave123-py/damage-detector/internal/config"
	"github.com/markdave123-py/damage-detector/internal/core"
)

// NewObjectClient builds the storage backend named by STORAGE_BACKEND and
// returns it with the bucket uploads should go to.
func NewObjectClient(ctx context.Context, cfg *config.Config) (core.ObjectClient, string, error) {
	switch cfg.StorageBackend {
	case "s3", "":
		c, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, "", err
		}
		return c, cfg.BucketName, nil
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, "", fmt.Errorf("GCS_BUCKET not set")
		}
		c, err := NewGCSClient(ctx)
		if err != nil {
			return nil, "", err
		}
		return c, cfg.GCSBucket, nil
	default:
		return nil, "", fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.StorageBackend)
	}
}
