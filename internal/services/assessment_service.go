package services

import (
	"context"
	"errors"
	"image"
	"os"

	"github.com/markdave123-py/damage-detector/internal/apperr"
	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/core/assessment"
	"github.com/markdave123-py/damage-detector/internal/core/cost"
	"github.com/markdave123-py/damage-detector/internal/core/vision"
	"github.com/markdave123-py/damage-detector/internal/models"
)

type CarPrediction struct {
	CarType  string `json:"car_type"`
	ImageURL string `json:"image_url"`
}

type SeverityPrediction struct {
	Severity string `json:"severity"`
	ImageURL string `json:"image_url"`
}

type DamagePrediction struct {
	Severity         string   `json:"severity"`
	DamagedParts     []string `json:"damaged_parts"`
	ImageURL         string   `json:"image_url"`
	OriginalImageURL string   `json:"original_image_url"`
}

// AssessmentReport is the aggregate of a multi-image submission.
type AssessmentReport struct {
	CarType       string               `json:"car_type"`
	Severity      string               `json:"severity"`
	DamagedParts  []string             `json:"damaged_parts"`
	EstimatedCost models.EstimatedCost `json:"estimated_cost"`
	ImageResults  []models.ImageResult `json:"image_results"`
}

// AssessmentService serves the single-image steps and the multi-image analysis.
type AssessmentService struct {
	cars      core.Classifier
	severity  core.Classifier
	extractor core.DamageExtractor
	estimator *cost.Estimator
	pipeline  *assessment.Pipeline
	store     assessment.ImageStore
	tempDir   string
}

func NewAssessmentService(
	cars, severity core.Classifier,
	extractor core.DamageExtractor,
	estimator *cost.Estimator,
	pipeline *assessment.Pipeline,
	store assessment.ImageStore,
	tempDir string,
) *AssessmentService {
	return &AssessmentService{
		cars:      cars,
		severity:  severity,
		extractor: extractor,
		estimator: estimator,
		pipeline:  pipeline,
		store:     store,
		tempDir:   tempDir,
	}
}

func (s *AssessmentService) PredictCar(ctx context.Context, path string) (*CarPrediction, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	carType, err := s.cars.Classify(ctx, img)
	if err != nil {
		return nil, apperr.Upstream("", err)
	}
	stored, err := s.store.Store(ctx, path, "image.jpg")
	if err != nil {
		return nil, apperr.Upstream("Failed to upload image to cloud storage", err)
	}
	return &CarPrediction{CarType: carType, ImageURL: stored.URL}, nil
}

func (s *AssessmentService) PredictSeverity(ctx context.Context, path string) (*SeverityPrediction, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	severity, err := s.severity.Classify(ctx, img)
	if err != nil {
		return nil, apperr.Upstream("", err)
	}
	stored, err := s.store.Store(ctx, path, "image.jpg")
	if err != nil {
		return nil, apperr.Upstream("Failed to upload image to cloud storage", err)
	}
	return &SeverityPrediction{Severity: severity, ImageURL: stored.URL}, nil
}

// PredictDamage runs damage detection once and annotates with those same detections.
func (s *AssessmentService) PredictDamage(ctx context.Context, path string) (*DamagePrediction, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	ext, err := s.extractor.Extract(ctx, img)
	if err != nil {
		return nil, apperr.Upstream("", err)
	}

	annotated, err := assessment.StoreAnnotated(ctx, s.store, s.tempDir, img, ext.Detections)
	if err != nil {
		return nil, apperr.Upstream("Failed to upload processed image", err)
	}
	original, err := s.store.Store(ctx, path, "original.jpg")
	if err != nil {
		_ = s.store.Remove(ctx, annotated.Key)
		return nil, apperr.Upstream("Failed to upload image to cloud storage", err)
	}

	parts := ext.DamagedParts
	if parts == nil {
		parts = []string{}
	}
	return &DamagePrediction{
		Severity:         ext.Severity,
		DamagedParts:     parts,
		ImageURL:         annotated.URL,
		OriginalImageURL: original.URL,
	}, nil
}

func (s *AssessmentService) EstimateCost(carType, severity string, parts models.DamagedParts) (models.EstimatedCost, error) {
	return s.estimator.Estimate(carType, severity, parts)
}

// Analyze assesses every image, then aggregates the successful ones and prices the result.
// When no image succeeds the first failure is returned.
func (s *AssessmentService) Analyze(ctx context.Context, inputs []assessment.Input) (*AssessmentReport, error) {
	results, err := s.pipeline.Run(ctx, inputs)
	if err != nil {
		return nil, apperr.Upstream("", err)
	}

	var firstErr string
	ok := 0
	for _, r := range results {
		if r.Status == models.ImageStatusOK {
			ok++
		} else if firstErr == "" {
			firstErr = r.Error
		}
	}
	if ok == 0 {
		return nil, apperr.Upstream("", errors.New(firstErr))
	}

	summary := assessment.Aggregate(results)
	estimate, err := s.estimator.Estimate(summary.CarType, summary.Severity, summary.PartCounts())
	if err != nil {
		return nil, err
	}

	return &AssessmentReport{
		CarType:       summary.CarType,
		Severity:      summary.Severity,
		DamagedParts:  summary.DamagedParts,
		EstimatedCost: estimate,
		ImageResults:  results,
	}, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.Upstream("", err)
	}
	defer f.Close()

	img, err := vision.Decode(f)
	if err != nil {
		return nil, apperr.Validation("Invalid image: " + err.Error())
	}
	return img, nil
}
