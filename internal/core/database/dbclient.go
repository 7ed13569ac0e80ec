package db

import (
	"context"
	"fmt"
	"log"

	"github.com/markdave123-py/damage-detector/internal/config"
	"github.com/markdave123-py/damage-detector/internal/core"
)

// NewDatabaseClient connects the store selected by DB_DRIVER.
func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}

	switch cfg.DBDriver {
	case "mongo", "":
		return NewMongoClient(ctx, cfg)
	case "postgres":
		return NewPostgresClient(ctx, cfg)
	case "memory":
		log.Println("WARN: using in-memory store, data is lost on restart")
		return NewMemoryClient(), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
