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

	// Redis
	RedisURL string

	// Server
	Port       string
	CORSOrigin string

	// Match Settings
	MatchDurationMinutes      int
	MatchmakingTimeoutSeconds int
	MatchmakingRatingWindow   int
	EvaluationTimeoutSeconds  int

	// Security
	AccessTokenSecret string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/codearena?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:       getEnv("PORT", "8000"),
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),

		// Match Settings
		MatchDurationMinutes:      getEnvInt("MATCH_DURATION_MINUTES", 30),
		MatchmakingTimeoutSeconds: getEnvInt("MATCHMAKING_TIMEOUT_SECONDS", 30),
		MatchmakingRatingWindow:   getEnvInt("MATCHMAKING_RATING_WINDOW", 200),
		EvaluationTimeoutSeconds:  getEnvInt("EVALUATION_TIMEOUT_SECONDS", 120),

		// Security
		AccessTokenSecret: getEnv("ACCESS_TOKEN_SECRET", "change-me-in-production"),
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
