package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Recognition defaults. Thresholds were tuned against the vggface2
// embedding space and should not be changed without re-validating.
const (
	DefaultCosineThreshold    = 0.85
	DefaultEuclideanThreshold = 0.6
	DefaultCooldownWindow     = 30 * time.Second
	DefaultEmbeddingDim       = 512
)

type Config struct {
	Database    DatabaseConfig
	Embedding   EmbeddingConfig
	Recognition RecognitionConfig
	Web         WebConfig
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL string // embedding server base URL, defaults to http://localhost:8000
	Dim int    // embedding dimension, defaults to 512
}

// RecognitionConfig holds the match decision thresholds and the
// per-identity cooldown window between logged matches.
type RecognitionConfig struct {
	CosineThreshold    float64
	EuclideanThreshold float64
	Cooldown           time.Duration
}

type WebConfig struct {
	Host           string
	Port           int
	SessionSecret  string
	AllowedOrigins []string // cross-origin dashboards allowed to call the API
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envList reads an environment variable as a comma-separated list,
// trimming whitespace and dropping empty entries.
func envList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envDuration reads an environment variable and parses it as a duration
// (e.g. "30s", "2m"). Returns the default value if unset or invalid.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func Load() *Config {
	embeddingURL := os.Getenv("EMBEDDING_URL")
	if embeddingURL == "" {
		embeddingURL = "http://localhost:8000"
	}

	host := os.Getenv("WEB_HOST")
	if host == "" {
		host = "0.0.0.0"
	}

	return &Config{
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL: embeddingURL,
			Dim: envInt("EMBEDDING_DIM", DefaultEmbeddingDim),
		},
		Recognition: RecognitionConfig{
			CosineThreshold:    envFloat("COSINE_THRESHOLD", DefaultCosineThreshold),
			EuclideanThreshold: envFloat("EUCLIDEAN_THRESHOLD", DefaultEuclideanThreshold),
			Cooldown:           envDuration("RECOGNITION_COOLDOWN", DefaultCooldownWindow),
		},
		Web: WebConfig{
			Host:           host,
			Port:           envInt("WEB_PORT", 8080),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}
