// Package menv reads typed configuration from the process environment.
// Bootstrap calls godotenv first so local .env files behave like exported
// variables.
package menv

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Load reads the optional .env file. A missing file is not an error.
func Load() {
	_ = godotenv.Load()
}

// String returns the variable value or fallback when unset or empty.
func String(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Int returns the variable parsed as int, or fallback.
func Int(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// Int64 returns the variable parsed as int64, or fallback.
func Int64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

// Duration returns the variable parsed with time.ParseDuration, or fallback.
func Duration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
