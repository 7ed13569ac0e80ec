package db

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/markdave123-py/damage-detector/internal/apperr"
	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/models"
)

// MemoryClient keeps users and history in process memory. Used for local runs and tests.
type MemoryClient struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	history []models.AssessmentRecord
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
	}
}

func (c *MemoryClient) Close() error { return nil }

func (c *MemoryClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, taken := c.byEmail[key]; taken {
		return apperr.ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	c.users[user.ID] = *user
	c.byEmail[key] = user.ID
	return nil
}

func (c *MemoryClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	id, ok := c.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	u := c.users[id]
	return &u, nil
}

func (c *MemoryClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u, ok := c.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (c *MemoryClient) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, ok := c.users[userID]
	if !ok {
		return apperr.NotFound("User not found")
	}
	u.GoogleID = googleID
	u.AuthProvider = "google"
	c.users[userID] = u
	return nil
}

func (c *MemoryClient) InsertHistory(ctx context.Context, rec *models.AssessmentRecord) error {
	if rec == nil {
		return errors.New("nil record")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	c.history = append(c.history, *rec)
	return nil
}

func (c *MemoryClient) ListHistory(ctx context.Context, userID string) ([]models.AssessmentRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.AssessmentRecord, 0)
	for _, r := range c.history {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (c *MemoryClient) Analytics(ctx context.Context, userID string) (*models.Analytics, error) {
	records, err := c.ListHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return computeAnalytics(records), nil
}

var _ core.DbClient = (*MemoryClient)(nil)
