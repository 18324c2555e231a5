package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Resolver ResolverConfig
	Import   ImportConfig
	Search   SearchConfig
	Jobs     JobsConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ResolverConfig carries the similarity thresholds for catalog resolution.
// The defaults were tuned against historical import files; products and
// clients tolerate different amounts of free-text noise.
type ResolverConfig struct {
	ProductThreshold float64
	ClientThreshold  float64
}

type ImportConfig struct {
	CommitBatchSize int
	MaxFileBytes    int64
}

type SearchConfig struct {
	IndexPath string // empty = in-memory bleve index
}

type JobsConfig struct {
	PruneSchedule string // cron spec for stale manual-match pruning
}

// Load reads configuration from environment variables. A .env file in the
// working directory is merged in first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "ventas-dev"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Resolver: ResolverConfig{
			ProductThreshold: getEnvAsFloat("RESOLVER_PRODUCT_THRESHOLD", 0.62),
			ClientThreshold:  getEnvAsFloat("RESOLVER_CLIENT_THRESHOLD", 0.68),
		},
		Import: ImportConfig{
			CommitBatchSize: getEnvAsInt("IMPORT_COMMIT_BATCH_SIZE", 50),
			MaxFileBytes:    int64(getEnvAsInt("IMPORT_MAX_FILE_BYTES", 10*1024*1024)),
		},
		Search: SearchConfig{
			IndexPath: getEnv("CATALOG_INDEX_PATH", ""),
		},
		Jobs: JobsConfig{
			PruneSchedule: getEnv("MATCH_PRUNE_SCHEDULE", "0 3 * * *"),
		},
	}

	if cfg.Resolver.ProductThreshold <= 0 || cfg.Resolver.ProductThreshold > 1 {
		return nil, fmt.Errorf("RESOLVER_PRODUCT_THRESHOLD out of range (0,1]: %f", cfg.Resolver.ProductThreshold)
	}
	if cfg.Resolver.ClientThreshold <= 0 || cfg.Resolver.ClientThreshold > 1 {
		return nil, fmt.Errorf("RESOLVER_CLIENT_THRESHOLD out of range (0,1]: %f", cfg.Resolver.ClientThreshold)
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
