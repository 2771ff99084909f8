package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr string
	Env      string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	AccessTokenSecret  string
	RefreshTokenSecret string
	JWTIssuer          string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	EmbeddingModel string
	ChatModel      string
	MatchThreshold float64
	MatchCount     int

	LoginRateLimit  int
	LoginRateWindow time.Duration

	SeedDemoUser bool
}

func Load() Config {
	return Config{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		Env:      getenv("ENV", "development"),

		DatabaseURL:   getenv("DATABASE_URL", ""),
		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		AccessTokenSecret:  getenv("ACCESS_TOKEN_SECRET", "your-access-token-secret-key-change-in-production"),
		RefreshTokenSecret: getenv("REFRESH_TOKEN_SECRET", "your-refresh-token-secret-key-change-in-production"),
		JWTIssuer:          getenv("JWT_ISSUER", "legalgpt"),
		AccessTokenTTL:     getenvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:    getenvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		OpenAIAPIKey:   getenv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getenv("OPENAI_BASE_URL", ""),
		EmbeddingModel: getenv("EMBEDDING_MODEL", "text-embedding-v1"),
		ChatModel:      getenv("CHAT_MODEL", "qwen-turbo"),
		MatchThreshold: getenvFloat("MATCH_THRESHOLD", 0.2),
		MatchCount:     getenvInt("MATCH_COUNT", 6),

		LoginRateLimit:  getenvInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getenvDuration("LOGIN_RATE_WINDOW", time.Minute),

		SeedDemoUser: getenvBool("SEED_DEMO_USER", false),
	}
}

// Production controls the Secure flag on the refresh cookie.
func (c Config) Production() bool {
	return c.Env == "production"
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}
