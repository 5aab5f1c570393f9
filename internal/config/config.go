// Package config loads the service configuration from the environment.
//
// main loads a .env file first (when one exists) so local development and
// containerized deployments read the same keys:
//
//	MAILFORGE_DIR      root of the file-backed stores (default "data")
//	MAILFORGE_PORT     HTTP listen port (default 8080)
//	MAILFORGE_STORAGE  "files" (default) or "sqlite"
//	MAILFORGE_DB       sqlite database path (default "mailforge.db")
package config

import (
	"fmt"
	"os"
	"strconv"
)

const (
	StorageFiles  = "files"
	StorageSQLite = "sqlite"
)

// Config holds the runtime settings of the service.
type Config struct {
	DataDir string
	Port    int
	Storage string
	DBPath  string
}

// Load reads configuration from the environment, falling back to defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DataDir: envOr("MAILFORGE_DIR", "data"),
		Port:    8080,
		Storage: envOr("MAILFORGE_STORAGE", StorageFiles),
		DBPath:  envOr("MAILFORGE_DB", "mailforge.db"),
	}

	if raw := os.Getenv("MAILFORGE_PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid MAILFORGE_PORT %q", raw)
		}
		cfg.Port = port
	}

	if cfg.Storage != StorageFiles && cfg.Storage != StorageSQLite {
		return nil, fmt.Errorf("invalid MAILFORGE_STORAGE %q (want %q or %q)",
			cfg.Storage, StorageFiles, StorageSQLite)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
