package services

import (
	"context"
	"time"

	"github.com/markdave123-py/damage-detector/internal/apperr"
	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/core/events"
	"github.com/markdave123-py/damage-detector/internal/models"
)

// EventSink receives lifecycle events. Enqueue must not block.
type EventSink interface {
	Enqueue(evt events.Event) bool
}

// HistoryInput is the client-supplied part of a saved assessment.
type HistoryInput struct {
	CarType       string                `json:"car_type"`
	Severity      string                `json:"severity"`
	DamagedParts  models.DamagedParts   `json:"damaged_parts"`
	EstimatedCost *models.EstimatedCost `json:"estimated_cost"`
	Images        map[string]string     `json:"images"`
}

type HistoryService struct {
	db     core.DbClient
	events EventSink
	now    func() time.Time
}

// NewHistoryService builds the service. sink may be nil.
func NewHistoryService(db core.DbClient, sink EventSink) *HistoryService {
	return &HistoryService{db: db, events: sink, now: time.Now}
}

// Save stamps the record with the server time and the owner, then stores it.
func (s *HistoryService) Save(ctx context.Context, userID string, in HistoryInput) (*models.AssessmentRecord, error) {
	rec := &models.AssessmentRecord{
		UserID:        userID,
		Timestamp:     s.now().UTC(),
		CarType:       in.CarType,
		Severity:      in.Severity,
		DamagedParts:  in.DamagedParts,
		EstimatedCost: in.EstimatedCost,
		Images:        in.Images,
	}
	if rec.DamagedParts == nil {
		rec.DamagedParts = models.DamagedParts{}
	}
	if rec.Images == nil {
		rec.Images = map[string]string{}
	}

	if err := s.db.InsertHistory(ctx, rec); err != nil {
		return nil, apperr.Upstream("", err)
	}
	if s.events != nil {
		s.events.Enqueue(events.AssessmentSaved(rec))
	}
	return rec, nil
}

func (s *HistoryService) List(ctx context.Context, userID string) ([]models.AssessmentRecord, error) {
	records, err := s.db.ListHistory(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream("", err)
	}
	return records, nil
}

func (s *HistoryService) Analytics(ctx context.Context, userID string) (*models.Analytics, error) {
	stats, err := s.db.Analytics(ctx, userID)
	if err != nil {
		return nil, apperr.Upstream("", err)
	}
	if stats.CarTypeDistribution == nil {
		stats.CarTypeDistribution = map[string]int{}
	}
	if stats.SeverityDistribution == nil {
		stats.SeverityDistribution = map[string]int{}
	}
	return stats, nil
}
