// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	// DriverMemory keeps users and vendors in process memory.
	DriverMemory = "memory"
	// DefaultJWTSecret is only accepted in development.
	DefaultJWTSecret = "change-me"
)

// Config is the validated service configuration.
type Config struct {
	AppPort            string        `mapstructure:"APP_PORT" validate:"required"`
	AppEnv             string        `mapstructure:"APP_ENV" validate:"required"`
	DatabaseDriver     string        `mapstructure:"DATABASE_DRIVER" validate:"oneof=postgres sqlite memory"`
	DatabaseDSN        string        `mapstructure:"DATABASE_DSN" validate:"required_unless=DatabaseDriver memory"`
	JWTSecret          string        `mapstructure:"JWT_SECRET" validate:"required"`
	JWTExpiresIn       time.Duration `mapstructure:"JWT_EXPIRES_IN" validate:"gt=0"`
	FrontendURL        string        `mapstructure:"FRONTEND_URL" validate:"omitempty,url"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS" validate:"dive,url"`
	VendorsRequireAuth bool          `mapstructure:"VENDORS_REQUIRE_AUTH"`
	RabbitMQURL        string        `mapstructure:"RABBITMQ_URL" validate:"omitempty,url"`
	RabbitMQAudit      bool          `mapstructure:"RABBITMQ_AUDIT"`
	LogLevel           string        `mapstructure:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile            string        `mapstructure:"LOG_FILE"`
}

// IsDevelopment reports whether error details may be exposed to clients.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == EnvDevelopment
}

// AllowedOrigins returns the CORS allowlist including FRONTEND_URL.
func (c Config) AllowedOrigins() []string {
	origins := make([]string, 0, len(c.CORSOrigins)+1)
	seen := make(map[string]bool)
	for _, o := range append([]string{c.FrontendURL}, c.CORSOrigins...) {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "" || seen[o] {
			continue
		}
		seen[o] = true
		origins = append(origins, o)
	}
	return origins
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8000")
	v.SetDefault("APP_ENV", EnvDevelopment)
	v.SetDefault("DATABASE_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "vendorrisk.db")
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("JWT_EXPIRES_IN", "24h")
	v.SetDefault("FRONTEND_URL", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")
	v.SetDefault("VENDORS_REQUIRE_AUTH", true)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_AUDIT", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
}

// LoadDotEnv applies a .env file to the process environment. A missing file
// is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from v, falling back to the defaults.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		AppPort:            v.GetString("APP_PORT"),
		AppEnv:             strings.ToLower(v.GetString("APP_ENV")),
		DatabaseDriver:     strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:        v.GetString("DATABASE_DSN"),
		JWTSecret:          v.GetString("JWT_SECRET"),
		JWTExpiresIn:       v.GetDuration("JWT_EXPIRES_IN"),
		FrontendURL:        v.GetString("FRONTEND_URL"),
		CORSOrigins:        splitList(v.GetString("CORS_ORIGINS")),
		VendorsRequireAuth: v.GetBool("VENDORS_REQUIRE_AUTH"),
		RabbitMQURL:        v.GetString("RABBITMQ_URL"),
		RabbitMQAudit:      v.GetBool("RABBITMQ_AUDIT"),
		LogLevel:           strings.ToLower(v.GetString("LOG_LEVEL")),
		LogFile:            v.GetString("LOG_FILE"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if !cfg.IsDevelopment() && cfg.JWTSecret == DefaultJWTSecret {
		return nil, errors.New("invalid configuration: JWT_SECRET must be set outside development")
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
