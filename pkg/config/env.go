package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv returns the environment variable value for key, or def if unset or empty.
func GetEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

// GetEnvInt returns the environment variable value for key parsed as int, or def if unset or invalid.
func GetEnvInt(key string, def int) int {
	if val := GetEnv(key, ""); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return def
}

// GetEnvFloat returns the environment variable value for key parsed as float64, or def if unset or invalid.
func GetEnvFloat(key string, def float64) float64 {
	if val := GetEnv(key, ""); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return def
}

// GetEnvBool accepts the forms strconv.ParseBool does, or def if unset or invalid.
func GetEnvBool(key string, def bool) bool {
	if val := GetEnv(key, ""); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return def
}

// GetEnvDuration returns the environment variable value for key parsed as time.Duration, or def if unset or invalid.
func GetEnvDuration(key string, def time.Duration) time.Duration {
	if val := GetEnv(key, ""); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return def
}
