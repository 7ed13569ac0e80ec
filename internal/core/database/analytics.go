package db

import (
	"math"

	"github.com/markdave123-py/damage-detector/internal/models"
)

// computeAnalytics mirrors the Mongo $facet pipeline for stores that cannot run it.
// Records without a cost do not count towards the average.
func computeAnalytics(records []models.AssessmentRecord) *models.Analytics {
	out := &models.Analytics{
		TotalAssessments:     len(records),
		CarTypeDistribution:  map[string]int{},
		SeverityDistribution: map[string]int{},
	}

	var sum float64
	var priced int
	for _, r := range records {
		countKey(out.CarTypeDistribution, r.CarType, 1)
		countKey(out.SeverityDistribution, r.Severity, 1)
		if r.EstimatedCost != nil {
			sum += r.EstimatedCost.Midpoint()
			priced++
		}
	}
	if priced > 0 {
		out.AverageCost = round2(sum / float64(priced))
	}
	return out
}

// countKey adds n to a distribution bucket. Records missing the field have no bucket.
func countKey(dist map[string]int, key string, n int) {
	if key == "" {
		return
	}
	dist[key] += n
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
