package assessment

import (
	"bytes"
	"context"
	"image"

	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/core/tempfile"
	"github.com/markdave123-py/damage-detector/internal/core/vision"
	"github.com/markdave123-py/damage-detector/internal/models"
)

// StoreAnnotated renders dets onto a copy of img, spools it to a temp file and uploads it.
// The temp file is removed before returning.
func StoreAnnotated(ctx context.Context, store ImageStore, tempDir string, img image.Image, dets []core.Detection) (models.StoredImage, error) {
	var buf bytes.Buffer
	if err := vision.EncodeJPEG(&buf, vision.Annotate(img, dets)); err != nil {
		return models.StoredImage{}, err
	}

	tf, err := tempfile.Acquire(tempDir, "annotated-*.jpg")
	if err != nil {
		return models.StoredImage{}, err
	}
	defer tf.Release()

	if err := tf.WriteFrom(&buf); err != nil {
		return models.StoredImage{}, err
	}
	return store.Store(ctx, tf.Path(), "annotated.jpg")
}
