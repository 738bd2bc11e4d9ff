package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
)

// DefaultMaxUploadBytes is the upload ceiling when none is configured: 50 MiB.
const DefaultMaxUploadBytes = 50 * 1024 * 1024

// Config holds everything read from the process environment. Comma-separated
// lists keep their raw form here; use the accessors.
type Config struct {
	Port           int    `env:"PORT,default=4000"`
	UploadDir      string `env:"UPLOAD_DIR,default=uploads"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS,default=http://localhost:3000"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES,default=52428800"`
	AllowedTypes   string `env:"ALLOWED_TYPES"`
	ReadTimeoutSec int    `env:"READ_TIMEOUT,default=60"`
	// AuthSecret enables bearer-token auth on mutating endpoints when set.
	AuthSecret string `env:"AUTH_SECRET"`
	LedgerDB   string `env:"LEDGER_DB,default=ledger.db"`

	Extras env.EnvSet
}

// Load reads a .env file when present, then the process environment.
func Load() (*Config, error) {
	// Ignore a missing .env; real env vars still apply.
	_ = godotenv.Load()

	var cfg Config
	es, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}
	cfg.Extras = es
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	return &cfg, nil
}

// Addr is the listen address derived from the configured port.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Origins returns the CORS origin allow-list.
func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// Types returns the content-type allow-list. Patterns ending in "/*" match
// by prefix. Defaults to images and PDFs, as the original upload relay did.
func (c *Config) Types() []string {
	ts := splitList(c.AllowedTypes)
	if len(ts) == 0 {
		return []string{"image/*", "application/pdf"}
	}
	return ts
}

// ReadTimeout bounds how long a client may take to send a request body.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSec) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
