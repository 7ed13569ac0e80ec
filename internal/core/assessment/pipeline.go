package assessment

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/core/vision"
	"github.com/markdave123-py/damage-detector/internal/models"
)

// ImageStore persists local image files and returns their public location.
type ImageStore interface {
	Store(ctx context.Context, localPath, name string) (models.StoredImage, error)
	Remove(ctx context.Context, key string) error
}

// Input is one uploaded image already spooled to a temp file owned by the caller.
type Input struct {
	Filename string
	Path     string
}

// Pipeline runs car-type and severity classification, damage extraction,
// annotation and upload for every image of a submission.
//
// cars, severity: classifiers sharing the preprocessing contract.
// extractor:      damage detector; its detections feed the annotation.
// store:          destination for originals and annotated copies.
// concurrency:    images processed at the same time.
type Pipeline struct {
	cars        core.Classifier
	severity    core.Classifier
	extractor   core.DamageExtractor
	store       ImageStore
	tempDir     string
	concurrency int
}

func NewPipeline(cars, severity core.Classifier, extractor core.DamageExtractor, store ImageStore, tempDir string, concurrency int) *Pipeline {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Pipeline{
		cars: cars, severity: severity, extractor: extractor, store: store,
		tempDir: tempDir, concurrency: concurrency,
	}
}

// Run processes the inputs concurrently. A failing image is reported in its own
// result and does not stop the others. Results keep the input order.
// The error is non-nil only when ctx ends before all images are done.
func (p *Pipeline) Run(ctx context.Context, inputs []Input) ([]models.ImageResult, error) {
	results := make([]models.ImageResult, len(inputs))

	var g errgroup.Group
	g.SetLimit(p.concurrency)

	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			results[i] = p.processOne(ctx, in)
			if results[i].Status == models.ImageStatusFailed {
				log.Printf("assessment: image %d (%s) failed: %s", i, in.Filename, results[i].Error)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (p *Pipeline) processOne(ctx context.Context, in Input) models.ImageResult {
	res := models.ImageResult{Filename: in.Filename, DamagedParts: []string{}}
	fail := func(stage string, err error) models.ImageResult {
		res.Status = models.ImageStatusFailed
		res.Error = fmt.Sprintf("%s: %v", stage, err)
		return res
	}

	f, err := os.Open(in.Path)
	if err != nil {
		return fail("read", err)
	}
	img, err := vision.Decode(f)
	f.Close()
	if err != nil {
		return fail("decode", err)
	}

	if res.CarType, err = p.cars.Classify(ctx, img); err != nil {
		return fail("car type", err)
	}
	if res.Severity, err = p.severity.Classify(ctx, img); err != nil {
		return fail("severity", err)
	}

	ext, err := p.extractor.Extract(ctx, img)
	if err != nil {
		return fail("damage detection", err)
	}
	if ext.DamagedParts != nil {
		res.DamagedParts = ext.DamagedParts
	}

	original, err := p.store.Store(ctx, in.Path, "original.jpg")
	if err != nil {
		return fail("upload original", err)
	}
	res.OriginalURL = original.URL

	annotated, err := StoreAnnotated(ctx, p.store, p.tempDir, img, ext.Detections)
	if err != nil {
		if rmErr := p.store.Remove(ctx, original.Key); rmErr != nil {
			log.Printf("assessment: cleanup of %s failed: %v", original.Key, rmErr)
		}
		res.OriginalURL = ""
		return fail("upload annotated", err)
	}
	res.AnnotatedURL = annotated.URL

	res.Status = models.ImageStatusOK
	return res
}
