package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ejudge-client/internal/components/chrono"
	"ejudge-client/internal/components/configutil"
	"ejudge-client/internal/components/telemetry"
	"ejudge-client/internal/scrapers/ejudge"
	"ejudge-client/internal/sessionstore"

	"github.com/joho/godotenv"
)

type Config struct {
	BaseURL  string `json:"base_url"`
	Username string `json:"username"`
	Password string `json:"password"`
	Remember *bool  `json:"remember"`

	Timezone         string  `json:"timezone"`
	TimeoutSeconds   int     `json:"timeout_seconds"`
	RateLimit        float64 `json:"rate_limit"`
	CloudflareBypass bool    `json:"cloudflare_bypass"`

	MaxRedirects     int  `json:"max_redirects"`
	MaxLoginAttempts *int `json:"max_login_attempts"`
	MaxPages         int  `json:"max_pages"`

	CommentStyles map[string]string `json:"comment_styles"`
	Header        []string          `json:"header"`
	Footer        []string          `json:"footer"`

	Session sessionstore.Config  `json:"session"`
	Debug   bool                 `json:"debug"`
	Otlp    telemetry.OtlpConfig `json:"otlp"`
}

const (
	envUsername = "EJUDGE_USERNAME"
	envPassword = "EJUDGE_PASSWORD"
	envBaseURL  = "EJUDGE_BASE_URL"
)

// loadConfig reads `name` from the cwd or any of its parents, a missing file
// yields the zero config. Relative session paths are resolved against the
// directory the config was found in.
func loadConfig(name string) (Config, error) {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	config, dir, err := configutil.ReadRecursively[Config](name)
	if errors.Is(err, os.ErrNotExist) {
		config = Config{}
		dir, err = os.Getwd()
	}
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", name, err)
	}

	config.applyEnv()

	if config.Session.Url == "" {
		if config.Session.File == "" {
			config.Session.File = filepath.Join(".ejudge", "sessions.db")
		}
		if !filepath.IsAbs(config.Session.File) {
			config.Session.File = filepath.Join(dir, config.Session.File)
		}
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envUsername); v != "" {
		c.Username = v
	}
	if v := os.Getenv(envPassword); v != "" {
		c.Password = v
	}
	if v := os.Getenv(envBaseURL); v != "" {
		c.BaseURL = v
	}
}

func (c Config) remember() bool {
	return c.Remember == nil || *c.Remember
}

func (c Config) clock() (chrono.StandardImpl, error) {
	clock, err := chrono.NewStandardImpl(c.Timezone)
	if err != nil {
		return chrono.StandardImpl{}, fmt.Errorf("timezone %s: %w", strconv.Quote(c.Timezone), err)
	}
	return clock, nil
}

// clientOptions overlays the config on ejudge.DefaultClientOptions.
func (c Config) clientOptions(loc *time.Location) ejudge.ClientOptions {
	opts := ejudge.DefaultClientOptions()
	opts.Location = loc
	opts.CloudflareBypass = c.CloudflareBypass
	if c.BaseURL != "" {
		opts.BaseURL = c.BaseURL
	}
	if c.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	if c.RateLimit > 0 {
		opts.RateLimit = c.RateLimit
	}
	if c.MaxRedirects > 0 {
		opts.MaxRedirects = c.MaxRedirects
	}
	if c.MaxLoginAttempts != nil {
		opts.MaxLoginAttempts = *c.MaxLoginAttempts
	}
	if c.MaxPages > 0 {
		opts.MaxPages = c.MaxPages
	}
	for ext, prefix := range c.CommentStyles {
		opts.CommentStyles[strings.ToLower(ext)] = prefix
	}
	return opts
}
