package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/uma-arai/sbcntr-rendezvous/internal/common/database"
)

type Config struct {
	DB  database.Config
	SFN struct {
		TaskToken string
	}
	API struct {
		Port               int
		RateLimitPerMinute int
		RateLimitBurst     int
	}
	Log struct {
		Level  string
		Format string
	}
	Agent struct {
		// ReservationHour は自動予約の希望時刻(翌日の何時か)です
		ReservationHour int
	}
	Recommend struct {
		CompanionLimit int
	}
	EnableTracing bool
}

// LoadConfig は設定を読み込みます
// .envファイルが存在する場合は先に読み込みますが、既存の環境変数は上書きしません
func LoadConfig(taskToken string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DB: database.Config{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvAsIntOrDefault("DB_PORT", 5432),
			UserName: getEnvOrDefault("DB_USERNAME", "sbcntrapp"),
			Password: getEnvOrDefault("DB_PASSWORD", "password"),
			DBName:   getEnvOrDefault("DB_NAME", "rendezvous"),
			SSLMode:  os.Getenv("DB_SSL_MODE"),
		},
		EnableTracing: false,
	}
	cfg.SFN.TaskToken = taskToken
	cfg.API.Port = getEnvAsIntOrDefault("PORT", 8080)
	cfg.API.RateLimitPerMinute = getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 120)
	cfg.API.RateLimitBurst = getEnvAsIntOrDefault("RATE_LIMIT_BURST", 20)
	cfg.Log.Level = strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info"))
	cfg.Log.Format = strings.ToLower(getEnvOrDefault("LOG_FORMAT", "json"))
	cfg.Agent.ReservationHour = getEnvAsIntOrDefault("AGENT_RESERVATION_HOUR", 19)
	cfg.Recommend.CompanionLimit = getEnvAsIntOrDefault("RECOMMEND_COMPANION_LIMIT", 5)

	// 環境変数[SBCNTR_ENABLE_TRACING]を見てトレースを有効にする。対応しているTracingはAWS_XRAYのみ。
	// 環境変数[AWS_XRAY_SDK_DISABLED]がtrueの場合は必ずトレースを無効にする。
	enableKey := os.Getenv("SBCNTR_ENABLE_TRACING")
	if !sdkDisabled() && (strings.ToLower(enableKey) == "true" || enableKey == "1") {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "FALSE")
		cfg.EnableTracing = true
	} else {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
		cfg.EnableTracing = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate は設定値の範囲を検証します
func (c *Config) Validate() error {
	var problems []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}
	if c.Agent.ReservationHour < 0 || c.Agent.ReservationHour > 23 {
		problems = append(problems, "AGENT_RESERVATION_HOUR must be between 0 and 23")
	}
	if c.Recommend.CompanionLimit < 1 {
		problems = append(problems, "RECOMMEND_COMPANION_LIMIT must be positive")
	}
	if c.API.RateLimitPerMinute < 1 || c.API.RateLimitBurst < 1 {
		problems = append(problems, "RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// IsLocal はENV=LOCALで起動しているかを返します
func IsLocal() bool {
	return os.Getenv("ENV") == "LOCAL"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	log.Debug().Str("key", key).Msg("Environment variable is not set, using default value")
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Environment variable is not an integer, using default value")
	}
	return defaultValue
}

// Check if SDK is disabled
func sdkDisabled() bool {
	disableKey := os.Getenv("AWS_XRAY_SDK_DISABLED")
	return strings.ToLower(disableKey) == "true"
}
