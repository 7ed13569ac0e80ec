package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// User represents an account created by email registration or Google sign-in.
type User struct {
	ID           string    `bson:"_id" db:"id" json:"id"`
	Name         string    `bson:"name" db:"name" json:"name"`
	Email        string    `bson:"email" db:"email" json:"email"`
	PasswordHash string    `bson:"password" db:"password_hash" json:"-"`
	GoogleID     string    `bson:"google_id,omitempty" db:"google_id" json:"-"`
	AuthProvider string    `bson:"auth_provider,omitempty" db:"auth_provider" json:"-"`
	CreatedAt    time.Time `bson:"created_at" db:"created_at" json:"-"`
}

// PublicUser is the shape returned to clients.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email}
}

type EstimatedCost struct {
	MinCost float64 `bson:"min_cost" json:"min_cost"`
	MaxCost float64 `bson:"max_cost" json:"max_cost"`
}

// Midpoint is the value averaged by analytics.
func (c EstimatedCost) Midpoint() float64 {
	return (c.MinCost + c.MaxCost) / 2
}

// DamagedParts maps a part name to how many times it was flagged.
// Clients send either an object or a plain list of names.
type DamagedParts map[string]int

func (p *DamagedParts) UnmarshalJSON(b []byte) error {
	var counts map[string]int
	if err := json.Unmarshal(b, &counts); err == nil {
		*p = counts
		return nil
	}

	var names []string
	if err := json.Unmarshal(b, &names); err == nil {
		*p = PartsFromNames(names)
		return nil
	}

	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*p = PartsFromNames([]string{single})
		return nil
	}

	return fmt.Errorf("damaged_parts must be an object, a list or a string")
}

// PartsFromNames assigns a count of 1 to every distinct name.
func PartsFromNames(names []string) DamagedParts {
	out := make(DamagedParts, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		out[n] = 1
	}
	return out
}

// Names returns the part names in sorted order.
func (p DamagedParts) Names() []string {
	out := make([]string, 0, len(p))
	for name := range p {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AssessmentRecord is one saved assessment. Records are never updated.
type AssessmentRecord struct {
	ID            string            `bson:"_id" json:"_id"`
	UserID        string            `bson:"user_id" json:"user_id"`
	Timestamp     time.Time         `bson:"timestamp" json:"timestamp"`
	CarType       string            `bson:"car_type" json:"car_type"`
	Severity      string            `bson:"severity" json:"severity"`
	DamagedParts  DamagedParts      `bson:"damaged_parts" json:"damaged_parts"`
	EstimatedCost *EstimatedCost    `bson:"estimated_cost" json:"estimated_cost"`
	Images        map[string]string `bson:"images" json:"images"`
}

const (
	ImageStatusOK     = "ok"
	ImageStatusFailed = "failed"
)

// ImageResult is the request-scoped outcome of processing one uploaded image.
type ImageResult struct {
	Filename     string   `json:"filename,omitempty"`
	OriginalURL  string   `json:"original_url,omitempty"`
	AnnotatedURL string   `json:"annotated_url,omitempty"`
	CarType      string   `json:"car_type,omitempty"`
	Severity     string   `json:"severity,omitempty"`
	DamagedParts []string `json:"damaged_parts"`
	Status       string   `json:"status"`
	Error        string   `json:"error,omitempty"`
}

type Analytics struct {
	TotalAssessments     int            `json:"total_assessments"`
	CarTypeDistribution  map[string]int `json:"car_type_distribution"`
	SeverityDistribution map[string]int `json:"severity_distribution"`
	AverageCost          float64        `json:"average_cost"`
}

// StoredImage is an uploaded object and its public URL.
type StoredImage struct {
	Key string
	URL string
}
