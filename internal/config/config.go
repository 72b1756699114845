package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"golang.org/x/crypto/bcrypt"
)

const (
	envPrefix  = "MARKET_"
	envFileVar = envPrefix + "CONFIG_FILE"
)

// Config holds the application configuration.
type Config struct {
	ServerPort         int           `koanf:"port"`
	DatabasePath       string        `koanf:"database_path"`
	JWTSecret          string        `koanf:"jwt_secret"`
	TokenTTL           time.Duration `koanf:"token_ttl"`
	BcryptCost         int           `koanf:"bcrypt_cost"`
	LogLevel           string        `koanf:"log_level"`
	LogPretty          bool          `koanf:"log_pretty"`
	AllowedOrigins     []string      `koanf:"allowed_origins"`
	EventRetention     time.Duration `koanf:"event_retention"`
	EventPruneSchedule string        `koanf:"event_prune_schedule"`
}

// Default returns the configuration used when nothing overrides it.
// JWTSecret is deliberately left empty; it must always be supplied.
func Default() *Config {
	return &Config{
		ServerPort:         8080,
		DatabasePath:       "./marketplace.db",
		TokenTTL:           24 * time.Hour,
		BcryptCost:         bcrypt.DefaultCost,
		LogLevel:           "info",
		LogPretty:          true,
		AllowedOrigins:     []string{"http://localhost:3000"},
		EventRetention:     30 * 24 * time.Hour,
		EventPruneSchedule: "@daily",
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// MARKET_CONFIG_FILE, and MARKET_* environment variables, in that order.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path, ok := os.LookupEnv(envFileVar); ok && path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
			if key == "allowed_origins" {
				return key, splitList(value)
			}
			return key, value
		},
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("load env variables: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("jwt_secret must be set (MARKET_JWT_SECRET)")
	}
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid port %d", c.ServerPort)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid token_ttl %s", c.TokenTTL)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
