package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjectClient struct {
	uploads     map[string][]byte
	contentType string
	deleted     []string
}

func (f *fakeObjectClient) UploadFile(ctx context.Context, bucket, key string, r io.Reader, contentType string) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if f.uploads == nil {
		f.uploads = map[string][]byte{}
	}
	f.uploads[key] = b
	f.contentType = contentType
	return "https://" + bucket + ".test/" + key, nil
}

func (f *fakeObjectClient) DeleteFile(ctx context.Context, bucket, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func TestImageServiceStoreAndRemove(t *testing.T) {
	objects := &fakeObjectClient{}
	svc := NewImageService(objects, "images")
	path := writeTestJPEG(t, t.TempDir())

	stored, err := svc.Store(context.Background(), path, "annotated image.jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.Key, "assessments/"))
	assert.True(t, strings.HasSuffix(stored.Key, "/annotated_image.jpg"))
	assert.Equal(t, "https://images.test/"+stored.Key, stored.URL)
	assert.Equal(t, "image/jpeg", objects.contentType)
	// the sniffed head must not be lost from the upload
	assert.Equal(t, []byte{0xFF, 0xD8}, objects.uploads[stored.Key][:2])

	require.NoError(t, svc.Remove(context.Background(), stored.Key))
	assert.Equal(t, []string{stored.Key}, objects.deleted)
}

func TestImageServiceKeysAreUnique(t *testing.T) {
	svc := NewImageService(&fakeObjectClient{}, "images")
	path := writeTestJPEG(t, t.TempDir())

	a, err := svc.Store(context.Background(), path, "original.jpg")
	require.NoError(t, err)
	b, err := svc.Store(context.Background(), path, "original.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, a.Key, b.Key)
}
