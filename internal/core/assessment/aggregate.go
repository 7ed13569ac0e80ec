// Package assessment combines per-image model outputs into a single vehicle assessment.
package assessment

import (
	"sort"

	"github.com/markdave123-py/damage-detector/internal/models"
)

const (
	UnknownCarType  = "Unknown"
	UnknownSeverity = "unknown"
)

var severityRank = map[string]int{
	"minor":    1,
	"moderate": 2,
	"severe":   3,
}

// SeverityRank orders severities; unrecognized labels rank 0.
func SeverityRank(s string) int {
	return severityRank[s]
}

// Summary is the overall assessment of a multi-image submission.
type Summary struct {
	CarType      string
	Severity     string
	DamagedParts []string
}

// PartCounts is what the cost estimator receives: every distinct part counted once.
func (s Summary) PartCounts() models.DamagedParts {
	return models.PartsFromNames(s.DamagedParts)
}

// Aggregate combines the successful results. Failed results do not vote.
func Aggregate(results []models.ImageResult) Summary {
	var carTypes, severities []string
	var parts [][]string
	for _, r := range results {
		if r.Status != models.ImageStatusOK {
			continue
		}
		carTypes = append(carTypes, r.CarType)
		severities = append(severities, r.Severity)
		parts = append(parts, r.DamagedParts)
	}

	return Summary{
		CarType:      MajorityCarType(carTypes),
		Severity:     MaxSeverity(severities),
		DamagedParts: UnionParts(parts),
	}
}

// MajorityCarType returns the most frequent label. Ties go to the label seen first.
func MajorityCarType(labels []string) string {
	if len(labels) == 0 {
		return UnknownCarType
	}

	counts := make(map[string]int, len(labels))
	order := make([]string, 0, len(labels))
	for _, l := range labels {
		if counts[l] == 0 {
			order = append(order, l)
		}
		counts[l]++
	}

	best := order[0]
	for _, l := range order[1:] {
		if counts[l] > counts[best] {
			best = l
		}
	}
	return best
}

// MaxSeverity returns the highest ranked severity, keeping the first on ties.
func MaxSeverity(labels []string) string {
	if len(labels) == 0 {
		return UnknownSeverity
	}
	best := labels[0]
	for _, l := range labels[1:] {
		if SeverityRank(l) > SeverityRank(best) {
			best = l
		}
	}
	return best
}

// UnionParts merges part lists into a sorted set. Per-image counts are dropped.
func UnionParts(lists [][]string) []string {
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, p := range list {
			if p != "" {
				seen[p] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
