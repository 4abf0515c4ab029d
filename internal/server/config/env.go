package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays Config fields from environment variables.
//
// Recognized variables:
//
//	ADDRESS                bind address (e.g., ":8080")
//	DATABASE_DSN           PostgreSQL DSN
//	JWT_SECRET             HMAC secret for token signing
//	ACCESS_TOKEN_VALIDITY  token lifetime as a Go duration (e.g., "168h")
//	LIST_MAX_LIMIT         pagination page-size cap
func parseEnv(config *Config) {
	config.EndpointAddr = getEnv("ADDRESS", config.EndpointAddr)
	config.DatabaseDSN = getEnv("DATABASE_DSN", config.DatabaseDSN)
	config.SecretKey = getEnv("JWT_SECRET", config.SecretKey)
	config.AccessTokenValidityDuration = getEnvDuration("ACCESS_TOKEN_VALIDITY", config.AccessTokenValidityDuration)
	config.ListMaxLimit = getEnvInt("LIST_MAX_LIMIT", config.ListMaxLimit)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
