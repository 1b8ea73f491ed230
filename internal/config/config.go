package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis (optional - cross-process push bridge is disabled when empty)
	RedisURL string

	// Server
	Port       string
	CORSOrigin string

	// Matchmaking
	QueueExpiryMinutes       int
	MatchExpiryMinutes       int
	ReconcileIntervalSeconds int
	SweepIntervalSeconds     int

	// Security
	JWTSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/studyplay?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// Server
		Port:       getEnv("APP_PORT", "8080"),
		CORSOrigin: getEnv("CORS_ORIGIN", "*"),

		// Matchmaking
		QueueExpiryMinutes:       getEnvInt("QUEUE_EXPIRY_MINUTES", 10),
		MatchExpiryMinutes:       getEnvInt("MATCH_EXPIRY_MINUTES", 10),
		ReconcileIntervalSeconds: getEnvInt("RECONCILE_INTERVAL_SECONDS", 2),
		SweepIntervalSeconds:     getEnvInt("SWEEP_INTERVAL_SECONDS", 30),

		// Security
		JWTSecret: getEnv("JWT_SECRET", "change-me-in-production"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
