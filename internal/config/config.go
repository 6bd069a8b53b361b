// Package config reads runtime settings from the environment, an optional
// .env file and an optional .env.<env> file through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevSessionKey is the fallback cookie key. It is rejected in prod.
const DevSessionKey = "doctype-dev-session-key-change-me"

// Config is the application configuration.
type Config struct {
	Env      string
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	Auth     AuthConfig
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr        string
	TemplateDir string
}

// DatabaseConfig points at the SQLite file.
type DatabaseConfig struct {
	Path string
}

// LogConfig configures zap and the rotated log file.
type LogConfig struct {
	File       string
	Dev        bool
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig configures sessions and the seeded admin account.
type AuthConfig struct {
	SessionKey    string
	SecureCookie  bool
	AdminPassword string
	BcryptCost    int
}

// LoadDotEnv loads KEY=VALUE pairs from a .env file into the process
// environment. A missing file is not an error; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("config: load dotenv: %w", err)
	}
	return nil
}

// New returns a viper instance with defaults, environment binding and, when
// present, values from .env.<env> in dir.
func New(env, dir string) (*viper.Viper, error) {
	if env == "" {
		env = "dev"
	}
	v := viper.New()

	v.SetConfigName(".env." + env)
	v.SetConfigType("env")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", filepath.Join(dir, ".env."+env), err)
		}
	}

	v.AutomaticEnv()

	v.SetDefault("APP_ENV", env)
	v.SetDefault("SERVER_ADDR", ":8080")
	v.SetDefault("TEMPLATE_DIR", "")
	v.SetDefault("DB_PATH", "./doctype.db")
	v.SetDefault("LOG_FILE", ".logs/doctype.log")
	v.SetDefault("LOG_DEV", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 10)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
	v.SetDefault("SESSION_KEY", DevSessionKey)
	v.SetDefault("SESSION_SECURE", false)
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("BCRYPT_COST", 10)

	return v, nil
}

// Load reads a Config out of v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env: strings.ToLower(v.GetString("APP_ENV")),
		Server: ServerConfig{
			Addr:        v.GetString("SERVER_ADDR"),
			TemplateDir: v.GetString("TEMPLATE_DIR"),
		},
		Database: DatabaseConfig{
			Path: v.GetString("DB_PATH"),
		},
		Log: LogConfig{
			File:       v.GetString("LOG_FILE"),
			Dev:        v.GetBool("LOG_DEV"),
			Level:      v.GetString("LOG_LEVEL"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
		Auth: AuthConfig{
			SessionKey:    v.GetString("SESSION_KEY"),
			SecureCookie:  v.GetBool("SESSION_SECURE"),
			AdminPassword: v.GetString("ADMIN_PASSWORD"),
			BcryptCost:    v.GetInt("BCRYPT_COST"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Server.Addr) == "":
		return errors.New("config: SERVER_ADDR is required")
	case strings.TrimSpace(c.Database.Path) == "":
		return errors.New("config: DB_PATH is required")
	case len(c.Auth.SessionKey) < 32:
		return errors.New("config: SESSION_KEY must be at least 32 bytes")
	case c.Env == "prod" && c.Auth.SessionKey == DevSessionKey:
		return errors.New("config: SESSION_KEY must be set in prod")
	case c.Auth.AdminPassword == "":
		return errors.New("config: ADMIN_PASSWORD is required")
	}
	return nil
}
