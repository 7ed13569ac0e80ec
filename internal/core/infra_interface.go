package core

import (
	"context"
	"io"

	"github.com/markdave123-py/damage-detector/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts MongoDB/Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	// CreateUser fails with apperr.ErrDuplicateEmail when the email is taken.
	CreateUser(ctx context.Context, user *models.User) error
	// GetUserByEmail and GetUserByID return nil, nil when no user matches.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	LinkGoogleID(ctx context.Context, userID, googleID string) error

	InsertHistory(ctx context.Context, rec *models.AssessmentRecord) error
	// ListHistory returns the user's records, newest first.
	ListHistory(ctx context.Context, userID string) ([]models.AssessmentRecord, error)
	Analytics(ctx context.Context, userID string) (*models.Analytics, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
}
