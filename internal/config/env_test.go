package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("MODEL_INPUT_SIZE", "not-a-number")
	t.Setenv("DB_DRIVER", "memory")
	t.Setenv("DETECTOR_MIN_CONFIDENCE", "")

	cfg := LoadConfig()

	// an explicitly empty value wins over the fallback
	assert.Equal(t, "", cfg.Port)
	assert.Equal(t, "s3cret", cfg.JWTSecret)
	assert.Equal(t, 224, cfg.ModelInputSize)
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.Equal(t, 0.4, cfg.DetectorMinConf)
}

func TestGetEnvFloat(t *testing.T) {
	t.Setenv("X_FLOAT", "0.65")
	assert.Equal(t, 0.65, getEnvFloat("X_FLOAT", 0.1))

	t.Setenv("X_FLOAT", "abc")
	assert.Equal(t, 0.1, getEnvFloat("X_FLOAT", 0.1))
}
