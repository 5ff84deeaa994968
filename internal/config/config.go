// Package config reads service configuration from a .env file and the
// environment. Variables already set in the environment win over the file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/xob0t/CardStencil/internal/fetch"
	"github.com/xob0t/CardStencil/pkg/render"
)

// Template store backends.
const (
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"
	StoreRedis    = "redis"
)

// Config is the resolved service configuration.
type Config struct {
	Listen        string
	PublicURL     string // document host for root-relative references
	VerifyBaseURL string
	FetchTimeout  time.Duration

	Fonts render.FontSources

	TemplateStore string
	TemplateFile  string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	CardDir  string
	LogLevel slog.Level
}

// Load applies the .env file at path, if present, and reads the
// environment. An empty path means ".env".
func Load(path string) (Config, error) {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
		slog.Debug("no .env file, using environment only", "path", path)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	c := Config{
		Listen:        get("LISTEN", ":8080"),
		PublicURL:     strings.TrimRight(get("PUBLIC_URL", "http://localhost:8080"), "/"),
		VerifyBaseURL: get("VERIFY_BASE_URL", render.DefaultVerifyBaseURL),
		Fonts: render.FontSources{
			Family:  get("FONT_FAMILY", "Montserrat"),
			Regular: get("FONT_REGULAR_URL", ""),
			Bold:    get("FONT_BOLD_URL", ""),
			Italic:  get("FONT_ITALIC_URL", ""),
		},
		TemplateStore: strings.ToLower(get("TEMPLATE_STORE", StoreFile)),
		TemplateFile:  get("TEMPLATE_FILE", "storage/template.json"),
		DatabaseURL:   get("DATABASE_URL", ""),
		RedisAddr:     get("REDIS_ADDR", "localhost:6379"),
		RedisPassword: get("REDIS_PASSWORD", ""),
		CardDir:       get("CARD_DIR", "storage/cards"),
	}

	var err error
	if c.FetchTimeout, err = time.ParseDuration(get("FETCH_TIMEOUT", fetch.DefaultTimeout.String())); err != nil {
		return Config{}, fmt.Errorf("FETCH_TIMEOUT: %w", err)
	}
	if c.FetchTimeout <= 0 {
		return Config{}, fmt.Errorf("FETCH_TIMEOUT: must be positive, got %s", c.FetchTimeout)
	}
	if c.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return Config{}, fmt.Errorf("REDIS_DB: %w", err)
	}
	if err := c.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch c.TemplateStore {
	case StoreFile, StoreRedis:
	case StorePostgres, StoreMySQL:
		if c.DatabaseURL == "" {
			return Config{}, fmt.Errorf("TEMPLATE_STORE=%s requires DATABASE_URL", c.TemplateStore)
		}
	default:
		return Config{}, fmt.Errorf("TEMPLATE_STORE: unknown backend %q", c.TemplateStore)
	}
	return c, nil
}

// RenderOptions returns the renderer settings derived from c.
func (c Config) RenderOptions() render.Options {
	return render.Options{
		Timeout:       c.FetchTimeout,
		DocumentHost:  c.PublicURL,
		VerifyBaseURL: c.VerifyBaseURL,
		Fonts:         c.Fonts,
	}
}
