// Package config loads runtime configuration from the environment.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds process-level settings not exposed as CLI flags.
type Config struct {
	Environment string
	BackendURL  string
	RealtimeURL string
	MaptilerKey string
	// Debug enables verbose logging and template hot-reload.
	Debug bool
}

// Load reads a local .env file if present, then the environment.
func Load() *Config {
	// Silently ignore a missing .env - for production
	_ = godotenv.Load()

	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Environment: env,
		BackendURL:  getEnv("GEOCHAT_BACKEND_URL", ""),
		RealtimeURL: getEnv("GEOCHAT_REALTIME_URL", ""),
		MaptilerKey: getEnv("MAPTILER_KEY", ""),
		Debug:       getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
