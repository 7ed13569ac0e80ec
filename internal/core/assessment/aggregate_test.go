package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/markdave123-py/damage-detector/internal/models"
)

func TestMajorityCarType(t *testing.T) {
	assert.Equal(t, "Sedan", MajorityCarType([]string{"Sedan", "Sedan", "SUV"}))
	assert.Equal(t, "SUV", MajorityCarType([]string{"Sedan", "SUV", "SUV"}))
	// ties go to the first label seen
	assert.Equal(t, "SUV", MajorityCarType([]string{"SUV", "Sedan"}))
	assert.Equal(t, "Sedan", MajorityCarType([]string{"Sedan", "SUV", "SUV", "Sedan"}))
	assert.Equal(t, UnknownCarType, MajorityCarType(nil))
}

func TestMaxSeverity(t *testing.T) {
	assert.Equal(t, "severe", MaxSeverity([]string{"minor", "severe", "moderate"}))
	assert.Equal(t, "moderate", MaxSeverity([]string{"minor", "moderate"}))
	assert.Equal(t, "minor", MaxSeverity([]string{"bogus", "minor"}))
	assert.Equal(t, "bogus", MaxSeverity([]string{"bogus"}))
	assert.Equal(t, UnknownSeverity, MaxSeverity([]string{}))
}

func TestUnionParts(t *testing.T) {
	got := UnionParts([][]string{{"hood"}, {"hood", "bumper"}})
	assert.ElementsMatch(t, []string{"hood", "bumper"}, got)
	assert.Empty(t, UnionParts(nil))
}

func TestAggregateSkipsFailedImages(t *testing.T) {
	results := []models.ImageResult{
		{Status: models.ImageStatusOK, CarType: "Sedan", Severity: "minor", DamagedParts: []string{"hood"}},
		{Status: models.ImageStatusFailed, CarType: "SUV", Severity: "severe", DamagedParts: []string{"roof"}},
		{Status: models.ImageStatusOK, CarType: "SUV", Severity: "moderate", DamagedParts: []string{"hood", "bumper"}},
	}

	s := Aggregate(results)
	assert.Equal(t, "Sedan", s.CarType)
	assert.Equal(t, "moderate", s.Severity)
	assert.Equal(t, []string{"bumper", "hood"}, s.DamagedParts)
	assert.Equal(t, models.DamagedParts{"bumper": 1, "hood": 1}, s.PartCounts())
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil)
	assert.Equal(t, UnknownCarType, s.CarType)
	assert.Equal(t, UnknownSeverity, s.Severity)
	assert.Empty(t, s.DamagedParts)
}
