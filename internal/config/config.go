package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Backend names the storage implementation selected at startup.
const (
	BackendPostgres = "postgres"
	BackendBolt     = "bolt"
)

type Config struct {
	DBBackend string
	DBSource  string
	BoltPath  string
	Port      string
	Env       string
}

// Load reads configuration from the environment, with an optional .env
// file for development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBBackend: getEnv("DB_BACKEND", BackendPostgres),
		DBSource:  os.Getenv("DB_SOURCE"),
		BoltPath:  getEnv("BOLT_PATH", "htlc.db"),
		Port:      getEnv("SERVER_PORT", "8080"),
		Env:       getEnv("ENVIRONMENT", "development"),
	}

	switch cfg.DBBackend {
	case BackendPostgres:
		if cfg.DBSource == "" {
			return nil, fmt.Errorf("DB_SOURCE environment variable is required for the postgres backend")
		}
	case BackendBolt:
	default:
		return nil, fmt.Errorf("unknown DB_BACKEND %q", cfg.DBBackend)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
