package core

import (
	"context"
	"image"
)

// Classifier maps an image to one label of a fixed label set.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (string, error)
}

// Detection is one bounding box in pixel coordinates of the source image.
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Extraction is the detector output for one image.
type Extraction struct {
	Detections   []Detection
	Severity     string
	DamagedParts []string
}

// DamageExtractor runs damage detection. Annotation must reuse the returned
// detections rather than running inference again.
type DamageExtractor interface {
	Extract(ctx context.Context, img image.Image) (*Extraction, error)
}
