package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr          string
	DatabasePath      string
	JWTSecret         string
	JWTIssuer         string
	AccessTokenTTL    time.Duration
	AdminEmail        string
	EvaluationTime    time.Duration
	CountdownTick     time.Duration
	AdminPollInterval time.Duration
}

func Load() Config {
	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DatabasePath:      getenv("DATABASE_PATH", "livigui.db"),
		JWTSecret:         getenv("JWT_SECRET", "dev-secret"),
		JWTIssuer:         getenv("JWT_ISSUER", "livigui-evaluations"),
		AccessTokenTTL:    getenvDuration("ACCESS_TOKEN_TTL", 12*time.Hour),
		AdminEmail:        getenv("ADMIN_EMAIL", "admin@livigui.com"),
		EvaluationTime:    getenvDuration("EVALUATION_DURATION", 45*time.Minute),
		CountdownTick:     getenvDuration("COUNTDOWN_TICK", time.Second),
		AdminPollInterval: getenvDuration("ADMIN_POLL_INTERVAL", 30*time.Second),
	}
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
