package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration is returned by Validate when the process cannot serve requests.
var ErrConfiguration = errors.New("invalid configuration")

type ConfigStruct struct {
	Genius  GeniusConfig
	LRCLib  LRCLibConfig
	Scrape  ScrapeConfig
	Sentry  SentryConfig
	Options Options
}

type GeniusConfig struct {
	AccessToken     string `validate:"required"`
	APIBaseURL      string `validate:"required,url"`
	WebBaseURL      string `validate:"required,url"`
	MetadataTimeout time.Duration
}

type LRCLibConfig struct {
	APIBaseURL string `validate:"required,url"`
	Timeout    time.Duration
}

type ScrapeConfig struct {
	UserAgent    string `validate:"required"`
	PageTimeout  time.Duration
	EmbedTimeout time.Duration
}

type SentryConfig struct {
	DSN     string
	Release string
}

type Options struct {
	Port     string
	LogLevel string
}

func (s *SentryConfig) IsEnabled() bool {
	return s.DSN != ""
}

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NewConfig reads the environment into a ConfigStruct. It never fails; call
// Validate before serving.
func NewConfig() *ConfigStruct {
	config := &ConfigStruct{
		Genius: GeniusConfig{
			AccessToken:     os.Getenv("GENIUS_ACCESS_TOKEN"),
			APIBaseURL:      getString("GENIUS_API_URL", "https://api.genius.com"),
			WebBaseURL:      getString("GENIUS_WEB_URL", "https://genius.com"),
			MetadataTimeout: getSeconds("METADATA_TIMEOUT_SECONDS", 10, 60),
		},
		LRCLib: LRCLibConfig{
			APIBaseURL: getString("LRCLIB_API_URL", "https://lrclib.net/api"),
			Timeout:    getSeconds("LRCLIB_TIMEOUT_SECONDS", 5, 30),
		},
		Scrape: ScrapeConfig{
			UserAgent:    getString("USER_AGENT", defaultUserAgent),
			PageTimeout:  getSeconds("SCRAPE_TIMEOUT_SECONDS", 15, 60),
			EmbedTimeout: getSeconds("EMBED_TIMEOUT_SECONDS", 10, 60),
		},
		Sentry: SentryConfig{
			DSN:     os.Getenv("SENTRY_DSN"),
			Release: os.Getenv("RELEASE"),
		},
		Options: Options{
			Port:     getString("PORT", "8080"),
			LogLevel: getString("LOG_LEVEL", "info"),
		},
	}
	return config
}

// Validate reports missing credentials and malformed upstream URLs.
// The returned error wraps ErrConfiguration.
func (c *ConfigStruct) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}

func getString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getSeconds parses a whole number of seconds, falling back to def for empty,
// invalid or non-positive values and capping at max.
func getSeconds(key string, def, max int) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(def) * time.Second
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return time.Duration(def) * time.Second
	}
	if n > max {
		return time.Duration(max) * time.Second
	}
	return time.Duration(n) * time.Second
}
