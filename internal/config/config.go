// Package config loads the environment supplied settings shared by all of
// the lambda handlers, falling back to sane defaults for local development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

const defaultTableName = "grades-system-table"

// Config holds the settings shared by all handlers.
type Config struct {
	// TableName the DynamoDB table holding every entity of the system
	TableName string

	// Debug when enabled failure responses may carry error detail
	Debug bool
}

// Load reads the configuration from the environment, a .env file is applied
// first when present so local runs behave like deployed ones.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		TableName: getEnv("TABLE_NAME", defaultTableName),
		Debug:     getEnv("DEBUG", "") == "true" || getEnv("ENVIRONMENT", "") == "development",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
