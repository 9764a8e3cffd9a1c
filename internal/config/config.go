// Package config loads wallet settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"expense-wallet/internal/api"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Defaults used when neither flags nor environment set a value.
const (
	DefaultDBPath      = "wallet.db"
	DefaultLogLevel    = "warn"
	DefaultDownloadDir = "."
)

// Config holds the settings of a wallet run.
type Config struct {
	BaseURL     string
	DBPath      string
	StoreKey    string
	Timeout     time.Duration
	LogLevel    string
	DownloadDir string
}

// Load reads .env files (when present) and then the environment.
// Variables already set in the environment take precedence over .env values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Config{
		BaseURL:     getenv("WALLET_BASE_URL", api.DefaultBaseURL),
		DBPath:      getenv("WALLET_DB_PATH", getenv("DB_PATH", DefaultDBPath)),
		StoreKey:    os.Getenv("WALLET_STORE_KEY"),
		Timeout:     api.DefaultTimeout,
		LogLevel:    getenv("WALLET_LOG_LEVEL", DefaultLogLevel),
		DownloadDir: getenv("WALLET_DOWNLOAD_DIR", DefaultDownloadDir),
	}

	if v := os.Getenv("WALLET_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid WALLET_TIMEOUT %q", v)
		}
		cfg.Timeout = d
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return Config{}, fmt.Errorf("invalid WALLET_LOG_LEVEL %q", cfg.LogLevel)
	}

	return cfg, nil
}

// APIConfig returns the HTTP client configuration for cfg.
func (c Config) APIConfig() api.Config {
	ac := api.DefaultConfig()
	ac.BaseURL = c.BaseURL
	ac.ConnectTimeout = c.Timeout
	ac.ReadTimeout = c.Timeout
	ac.WriteTimeout = c.Timeout
	return ac
}

// NewLogger returns a console logger writing to w at the given level.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
