// Package config читает настройки сервера из окружения и файла .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"

	"vendorbid/internal/logging"
)

type Config struct {
	Env            string
	ServerAddress  string
	PostgresConn   string
	MigrateOnStart bool

	JWTSecret      string
	AccessTokenTTL time.Duration
	BcryptCost     int

	UploadDir      string
	MaxUploadBytes int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Запросов к /api/auth с одного IP в минуту
	AuthRateLimit int

	RabbitMQURL string

	LogLevel    string
	LogFormat   string
	CORSOrigins []string
}

var defaults = map[string]any{
	"APP_ENV":          "development",
	"SERVER_ADDRESS":   "0.0.0.0:8080",
	"MIGRATE_ON_START": true,
	"ACCESS_TOKEN_TTL": 24 * time.Hour,
	"BCRYPT_COST":      bcrypt.DefaultCost,
	"UPLOAD_DIR":       "./uploads",
	"MAX_UPLOAD_BYTES": int64(10 << 20),
	"REDIS_DB":         0,
	"AUTH_RATE_LIMIT":  20,
	"LOG_LEVEL":        logging.LogLevelInfo,
	"LOG_FORMAT":       logging.LogFormatPlain,
	"CORS_ORIGINS":     "*",
}

// Load читает .env (если он есть) и переменные окружения.
// Переменные окружения имеют приоритет над .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	cfg := &Config{
		Env:            v.GetString("APP_ENV"),
		ServerAddress:  v.GetString("SERVER_ADDRESS"),
		PostgresConn:   v.GetString("POSTGRES_CONN"),
		MigrateOnStart: v.GetBool("MIGRATE_ON_START"),
		JWTSecret:      v.GetString("JWT_SECRET"),
		AccessTokenTTL: v.GetDuration("ACCESS_TOKEN_TTL"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		UploadDir:      v.GetString("UPLOAD_DIR"),
		MaxUploadBytes: v.GetInt64("MAX_UPLOAD_BYTES"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		AuthRateLimit:  v.GetInt("AUTH_RATE_LIMIT"),
		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		CORSOrigins:    splitList(v.GetString("CORS_ORIGINS")),
	}
	if err := cfg.ValidateBasic(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (c *Config) ValidateBasic() error {
	if c.PostgresConn == "" {
		return errors.New("POSTGRES_CONN env variable is not set")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET env variable is not set")
	}
	if c.AccessTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL must be positive")
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be positive")
	}
	if c.AuthRateLimit < 0 {
		return errors.New("AUTH_RATE_LIMIT can't be negative")
	}
	if c.UploadDir == "" {
		return errors.New("UPLOAD_DIR env variable is empty")
	}
	return nil
}
