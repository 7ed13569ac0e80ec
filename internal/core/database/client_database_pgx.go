package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/damage-detector/internal/apperr"
	"github.com/markdave123-py/damage-detector/internal/config"
	"github.com/markdave123-py/damage-detector/internal/core"
	"github.com/markdave123-py/damage-detector/internal/models"
)

const uniqueViolation = "23505"

// PostgresClient stores users and history in Postgres. Nested record fields are JSONB.
type PostgresClient struct {
	db *sql.DB
}

func NewPostgresClient(ctx context.Context, cfg *config.Config) (*PostgresClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

func (c *PostgresClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *PostgresClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	const q = `
		INSERT INTO users (id, name, email, password_hash, google_id, auth_provider, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.Name, user.Email, user.PasswordHash, user.GoogleID, user.AuthProvider, user.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.ErrDuplicateEmail
	}
	return err
}

func (c *PostgresClient) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	q := `
		SELECT id, name, email, password_hash, google_id, auth_provider, created_at
		FROM users WHERE ` + where
	var u models.User
	err := c.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.GoogleID, &u.AuthProvider, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *PostgresClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.getUser(ctx, "email = $1", email)
}

func (c *PostgresClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return c.getUser(ctx, "id = $1", id)
}

func (c *PostgresClient) LinkGoogleID(ctx context.Context, userID, googleID string) error {
	const q = `UPDATE users SET google_id = $2, auth_provider = 'google' WHERE id = $1`
	res, err := c.db.ExecContext(ctx, q, userID, googleID)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NotFound("User not found")
	}
	return nil
}

func (c *PostgresClient) InsertHistory(ctx context.Context, rec *models.AssessmentRecord) error {
	if rec == nil {
		return errors.New("nil record")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	parts, err := json.Marshal(rec.DamagedParts)
	if err != nil {
		return fmt.Errorf("encode damaged_parts: %w", err)
	}
	images, err := json.Marshal(rec.Images)
	if err != nil {
		return fmt.Errorf("encode images: %w", err)
	}
	var cost []byte
	if rec.EstimatedCost != nil {
		if cost, err = json.Marshal(rec.EstimatedCost); err != nil {
			return fmt.Errorf("encode estimated_cost: %w", err)
		}
	}

	const q = `
		INSERT INTO history (id, user_id, "timestamp", car_type, severity, damaged_parts, estimated_cost, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = c.db.ExecContext(ctx, q,
		rec.ID, rec.UserID, rec.Timestamp, rec.CarType, rec.Severity, string(parts), nullableJSON(cost), string(images))
	return err
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func (c *PostgresClient) ListHistory(ctx context.Context, userID string) ([]models.AssessmentRecord, error) {
	const q = `
		SELECT id, user_id, "timestamp", car_type, severity, damaged_parts, estimated_cost, images
		FROM history
		WHERE user_id = $1
		ORDER BY "timestamp" DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.AssessmentRecord, 0)
	for rows.Next() {
		var (
			r                   models.AssessmentRecord
			parts, cost, images []byte
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Timestamp, &r.CarType, &r.Severity, &parts, &cost, &images); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(parts, &r.DamagedParts); err != nil {
			return nil, fmt.Errorf("decode damaged_parts of %s: %w", r.ID, err)
		}
		if len(cost) > 0 {
			r.EstimatedCost = &models.EstimatedCost{}
			if err := json.Unmarshal(cost, r.EstimatedCost); err != nil {
				return nil, fmt.Errorf("decode estimated_cost of %s: %w", r.ID, err)
			}
		}
		if err := json.Unmarshal(images, &r.Images); err != nil {
			return nil, fmt.Errorf("decode images of %s: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Analytics runs the same facets as the Mongo pipeline as three grouped queries.
func (c *PostgresClient) Analytics(ctx context.Context, userID string) (*models.Analytics, error) {
	out := &models.Analytics{}

	const totals = `
		SELECT count(*),
		       avg(((estimated_cost->>'min_cost')::float8 + (estimated_cost->>'max_cost')::float8) / 2)
		FROM history WHERE user_id = $1
	`
	var avg sql.NullFloat64
	if err := c.db.QueryRowContext(ctx, totals, userID).Scan(&out.TotalAssessments, &avg); err != nil {
		return nil, fmt.Errorf("analytics totals: %w", err)
	}
	if avg.Valid {
		out.AverageCost = round2(avg.Float64)
	}

	var err error
	if out.CarTypeDistribution, err = c.distribution(ctx, "car_type", userID); err != nil {
		return nil, err
	}
	if out.SeverityDistribution, err = c.distribution(ctx, "severity", userID); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *PostgresClient) distribution(ctx context.Context, column, userID string) (map[string]int, error) {
	if column != "car_type" && column != "severity" {
		return nil, fmt.Errorf("unsupported distribution column %q", column)
	}
	q := fmt.Sprintf(`SELECT %s, count(*) FROM history WHERE user_id = $1 GROUP BY %s`, column, column)

	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("analytics %s: %w", strings.ReplaceAll(column, "_", " "), err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		countKey(out, key, n)
	}
	return out, rows.Err()
}

var _ core.DbClient = (*PostgresClient)(nil)
