package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port               int    `envconfig:"PORT" default:"8080"`
	DatabaseURL        string `envconfig:"DATABASE_URL"`
	JWTSecret          string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AccessPasswordHash string `envconfig:"ACCESS_PASSWORD_HASH"`
	AllowedOrigins     string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	MaxUploadBytes     int64  `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
	Sampling           string `envconfig:"SAMPLING" default:"nearest"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Sampling {
	case "nearest", "bilinear":
	default:
		return fmt.Errorf("SAMPLING must be nearest or bilinear, got %q", c.Sampling)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps debug, info, warn or error to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return l, nil
}
