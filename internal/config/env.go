package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	FrontendURL string
	JWTSecret   string

	DBDriver    string
	MongoURI    string
	MongoDB     string
	DatabaseURL string

	StorageBackend string
	AwsAccessKey   string
	AwsSecretKey   string
	AwsRegion      string
	BucketName     string
	GCSBucket      string

	AIAPIKey       string
	GenModel       string
	GoogleClientID string

	CarModelURL         string
	SeverityModelURL    string
	DetectorURL         string
	DetectorAPIKey      string
	DetectorMinConf     float64
	ModelInputSize      int
	CarLabelsPath       string
	PricingPath         string
	PipelineConcurrency int

	KafkaBrokers string
	KafkaTopic   string
	EventWorkers int

	MaxUploadMB int
	TempDir     string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "5000"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		JWTSecret:   getEnv("JWT_SECRET", getEnv("JWT_SECRET_KEY", "super-secret-key")),

		DBDriver:    getEnv("DB_DRIVER", "mongo"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/damage_detector"),
		MongoDB:     getEnv("MONGO_DB", "damage_detector"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		StorageBackend: getEnv("STORAGE_BACKEND", "s3"),
		AwsAccessKey:   getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:   getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:      getEnv("AWS_REGION", "us-east-2"),
		BucketName:     getEnv("BUCKET_NAME", "damage-detector-images"),
		GCSBucket:      getEnv("GCS_BUCKET", ""),

		AIAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GenModel:       getEnv("GEN_MODEL", "gemma-3-4b-it"),
		GoogleClientID: getEnv("GOOGLE_CLIENT_ID", ""),

		CarModelURL:         getEnv("CAR_MODEL_URL", "http://localhost:8501/v1/models/car_model:predict"),
		SeverityModelURL:    getEnv("SEVERITY_MODEL_URL", "http://localhost:8501/v1/models/severity_model:predict"),
		DetectorURL:         getEnv("DETECTOR_URL", ""),
		DetectorAPIKey:      getEnv("DETECTOR_API_KEY", ""),
		DetectorMinConf:     getEnvFloat("DETECTOR_MIN_CONFIDENCE", 0.4),
		ModelInputSize:      getEnvInt("MODEL_INPUT_SIZE", 224),
		CarLabelsPath:       getEnv("CAR_LABELS_PATH", "model/car_labels.json"),
		PricingPath:         getEnv("PRICING_PATH", ""),
		PipelineConcurrency: getEnvInt("PIPELINE_CONCURRENCY", 4),

		KafkaBrokers: getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "assessment-events"),
		EventWorkers: getEnvInt("EVENT_WORKERS", 2),

		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 32),
		TempDir:     getEnv("TEMP_DIR", os.TempDir()),
	}

	if cfg.DetectorURL == "" {
		log.Println("WARN: DETECTOR_URL not set, the server cannot start without a damage detector")
	}

	return cfg
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvFloat(key string, def float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: %s=%q not a number, using default %g", key, v, def)
		return def
	}
	return f
}
