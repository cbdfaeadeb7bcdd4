// Package config loads settings for the dashboard client and the plans server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL   = "http://localhost:5000/api"
	DefaultTimeout  = 15 * time.Second
	DefaultPort     = "5000"
	DefaultDBPath   = "data/evacuation.db"
	DefaultSeedPath = "data/seeds/evacuation_plans.json"
	DefaultCacheTTL = 30 * time.Second
)

// Get returns the environment value for key, or fallback when unset or empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// Client configures the dashboard CLI and TUI.
type Client struct {
	APIURL   string `yaml:"api_url"`
	Timeout  string `yaml:"timeout"`
	LogLevel string `yaml:"log_level"`
}

func DefaultClient() Client {
	return Client{
		APIURL:   DefaultAPIURL,
		Timeout:  DefaultTimeout.String(),
		LogLevel: "warn",
	}
}

// LoadClient layers defaults, the optional YAML file at path and environment
// overrides. A missing file is not an error; an empty path skips the file.
func LoadClient(path string) (Client, error) {
	cfg := DefaultClient()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Client{}, fmt.Errorf("load client config: read %q: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Client{}, fmt.Errorf("load client config: parse %q: %w", path, err)
			}
		}
	}

	// VITE_API_URL is honored so an existing frontend .env keeps working.
	cfg.APIURL = Get("DASHBOARD_API_URL", Get("VITE_API_URL", cfg.APIURL))
	cfg.Timeout = Get("DASHBOARD_TIMEOUT", cfg.Timeout)
	cfg.LogLevel = Get("LOG_LEVEL", cfg.LogLevel)

	if _, err := cfg.TimeoutDuration(); err != nil {
		return Client{}, fmt.Errorf("load client config: %w", err)
	}
	return cfg, nil
}

// TimeoutDuration parses Timeout; empty means DefaultTimeout.
func (c Client) TimeoutDuration() (time.Duration, error) {
	if strings.TrimSpace(c.Timeout) == "" {
		return DefaultTimeout, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid timeout %q: must be positive", c.Timeout)
	}
	return d, nil
}

// Store selects the plans server's backing store.
type Store string

const (
	StoreMemory   Store = "memory"
	StoreSQLite   Store = "sqlite"
	StorePostgres Store = "postgres"
)

type Server struct {
	Port           string
	Store          Store
	DBPath         string
	DatabaseURL    string
	SeedPath       string
	RedisURL       string
	CacheTTL       time.Duration
	AllowedOrigins []string
	LogLevel       string
}

// LoadServer reads the server settings from the environment.
func LoadServer() (Server, error) {
	cfg := Server{
		Port:        Get("PORT", DefaultPort),
		Store:       Store(strings.ToLower(Get("STORE", string(StoreSQLite)))),
		DBPath:      Get("DB_PATH", DefaultDBPath),
		DatabaseURL: Get("DATABASE_URL", ""),
		SeedPath:    Get("SEED_PATH", DefaultSeedPath),
		RedisURL:    Get("REDIS_URL", ""),
		CacheTTL:    DefaultCacheTTL,
		LogLevel:    Get("LOG_LEVEL", "info"),
	}

	switch cfg.Store {
	case StoreMemory, StoreSQLite:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Server{}, errors.New("load server config: DATABASE_URL is required for STORE=postgres")
		}
	default:
		return Server{}, fmt.Errorf("load server config: unknown STORE %q", cfg.Store)
	}

	if v := Get("CACHE_TTL", ""); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			// Bare integers are read as seconds.
			secs, convErr := strconv.Atoi(v)
			if convErr != nil {
				return Server{}, fmt.Errorf("load server config: invalid CACHE_TTL %q: %w", v, err)
			}
			ttl = time.Duration(secs) * time.Second
		}
		cfg.CacheTTL = ttl
	}

	for _, o := range strings.Split(Get("ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}
	return cfg, nil
}
