package config

import (
	"os"
	"time"
)

type Config struct {
	DatabaseURL          string
	JWTSecret            string
	JWTExpiration        time.Duration
	ServerPort           string
	ReconcileTaskTimeout time.Duration
	StatusLockExpiry     time.Duration
}

func Load() *Config {
	return &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		JWTSecret:            getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTExpiration:        24 * time.Hour,
		ServerPort:           getEnv("SERVER_PORT", "8080"),
		ReconcileTaskTimeout: getDurationEnv("RECONCILE_TASK_TIMEOUT", 30*time.Second),
		StatusLockExpiry:     getDurationEnv("STATUS_LOCK_EXPIRY", 30*time.Minute),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
