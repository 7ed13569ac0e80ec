// Package cost turns a damage assessment into a repair cost range using a static pricing table.
package cost

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/markdave123-py/damage-detector/internal/apperr"
	"github.com/markdave123-py/damage-detector/internal/models"
)

//go:embed pricing.yaml
var defaultPricing []byte

// Range is a [min, max] amount.
type Range []float64

func (r Range) valid() bool { return len(r) == 2 && r[0] >= 0 && r[0] <= r[1] }

type PricingTable struct {
	Currency    string             `yaml:"currency"`
	Parts       map[string]Range   `yaml:"parts"`
	DefaultPart Range              `yaml:"default_part"`
	Inspection  Range              `yaml:"inspection"`
	CarTypes    map[string]float64 `yaml:"car_types"`
	Severity    map[string]float64 `yaml:"severity"`
}

// Estimator is safe for concurrent use; the table is never mutated after construction.
type Estimator struct {
	table PricingTable
}

// NewEstimator loads the pricing table from path, or the embedded table when path is empty.
func NewEstimator(path string) (*Estimator, error) {
	raw := defaultPricing
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read pricing table: %w", err)
		}
		raw = b
	}
	return ParsePricing(raw)
}

func ParsePricing(raw []byte) (*Estimator, error) {
	var t PricingTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse pricing table: %w", err)
	}
	if len(t.CarTypes) == 0 || len(t.Severity) == 0 {
		return nil, fmt.Errorf("pricing table needs car_types and severity multipliers")
	}

	for name, r := range t.Parts {
		if !r.valid() {
			return nil, fmt.Errorf("pricing table: part %q needs a [min, max] range", name)
		}
	}
	if !t.DefaultPart.valid() || !t.Inspection.valid() {
		return nil, fmt.Errorf("pricing table: default_part and inspection need [min, max] ranges")
	}

	// lookups are case-insensitive
	t.Parts = lowerKeys(t.Parts)
	t.CarTypes = lowerKeys(t.CarTypes)
	t.Severity = lowerKeys(t.Severity)
	return &Estimator{table: t}, nil
}

func lowerKeys[V any](in map[string]V) map[string]V {
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

// Estimate returns the repair range for the given assessment.
// Unknown car types and severities fail with an UnknownCategory error.
func (e *Estimator) Estimate(carType, severity string, parts models.DamagedParts) (models.EstimatedCost, error) {
	carMul, ok := e.table.CarTypes[strings.ToLower(strings.TrimSpace(carType))]
	if !ok {
		return models.EstimatedCost{}, apperr.UnknownCategory(fmt.Sprintf("unknown car type %q", carType))
	}
	sevMul, ok := e.table.Severity[strings.ToLower(strings.TrimSpace(severity))]
	if !ok {
		return models.EstimatedCost{}, apperr.UnknownCategory(fmt.Sprintf("unknown severity %q", severity))
	}

	var lo, hi float64
	counted := 0
	// sorted iteration keeps float summation order, and so the result, stable
	for _, name := range parts.Names() {
		count := parts[name]
		if count <= 0 {
			continue
		}
		r, ok := e.table.Parts[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			r = e.table.DefaultPart
		}
		lo += r[0] * float64(count)
		hi += r[1] * float64(count)
		counted++
	}
	if counted == 0 {
		lo, hi = e.table.Inspection[0], e.table.Inspection[1]
	}

	return models.EstimatedCost{
		MinCost: math.Round(lo * carMul * sevMul),
		MaxCost: math.Round(hi * carMul * sevMul),
	}, nil
}

// CarTypes lists the car types the table can price.
func (e *Estimator) CarTypes() []string {
	out := make([]string, 0, len(e.table.CarTypes))
	for k := range e.table.CarTypes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
