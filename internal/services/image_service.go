package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/core/assessment"
	"github.com/markdave123-py/damage-detector/internal/models"
)

// ImageService stores assessment images in object storage.
type ImageService struct {
	storage core.ObjectClient
	bucket  string
}

func NewImageService(storage core.ObjectClient, bucket string) *ImageService {
	return &ImageService{storage: storage, bucket: bucket}
}

// Store uploads the local file at localPath under a fresh key ending in name.
func (s *ImageService) Store(ctx context.Context, localPath, name string) (models.StoredImage, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return models.StoredImage{}, fmt.Errorf("open %s: %w", filepath.Base(localPath), err)
	}
	defer f.Close()

	contentType, err := sniffContentType(f)
	if err != nil {
		return models.StoredImage{}, err
	}

	key := s.objectKey(uuid.NewString(), name)
	url, err := s.storage.UploadFile(ctx, s.bucket, key, f, contentType)
	if err != nil {
		return models.StoredImage{}, err
	}
	return models.StoredImage{Key: key, URL: url}, nil
}

func (s *ImageService) Remove(ctx context.Context, key string) error {
	return s.storage.DeleteFile(ctx, s.bucket, key)
}

// objectKey creates a consistent key layout.
func (s *ImageService) objectKey(id, filename string) string {
	filename = strings.TrimSpace(filepath.Base(filename))
	filename = strings.ReplaceAll(filename, " ", "_")
	return path.Join("assessments", id, filename)
}

// sniffContentType reads the file head and rewinds it.
func sniffContentType(f io.ReadSeeker) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read image head: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind image: %w", err)
	}
	return http.DetectContentType(head[:n]), nil
}

var _ assessment.ImageStore = (*ImageService)(nil)
