package config

import (
	"errors"
	"testing"
	"time"
)

func TestGetSeconds(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want time.Duration
	}{
		{"empty", "", 5 * time.Second},
		{"invalid", "abc", 5 * time.Second},
		{"zero", "0", 5 * time.Second},
		{"negative", "-1", 5 * time.Second},
		{"min", "1", 1 * time.Second},
		{"valid", "12", 12 * time.Second},
		{"max", "30", 30 * time.Second},
		{"over", "31", 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LRCLIB_TIMEOUT_SECONDS", tt.env)
			if got := getSeconds("LRCLIB_TIMEOUT_SECONDS", 5, 30); got != tt.want {
				t.Errorf("getSeconds() = %v; want %v", got, tt.want)
			}
		})
	}
}

func TestNewConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"GENIUS_API_URL", "GENIUS_WEB_URL", "LRCLIB_API_URL", "PORT",
		"METADATA_TIMEOUT_SECONDS", "LRCLIB_TIMEOUT_SECONDS",
		"SCRAPE_TIMEOUT_SECONDS", "EMBED_TIMEOUT_SECONDS", "USER_AGENT",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("GENIUS_ACCESS_TOKEN", "token")

	cfg := NewConfig()
	if a, b := NewConfig(), NewConfig(); a == b {
		t.Error("NewConfig should build a fresh config per call")
	}
	if cfg.Genius.APIBaseURL != "https://api.genius.com" {
		t.Errorf("APIBaseURL = %q", cfg.Genius.APIBaseURL)
	}
	if cfg.LRCLib.Timeout != 5*time.Second {
		t.Errorf("LRCLib.Timeout = %v; want 5s", cfg.LRCLib.Timeout)
	}
	if cfg.Scrape.PageTimeout != 15*time.Second {
		t.Errorf("Scrape.PageTimeout = %v; want 15s", cfg.Scrape.PageTimeout)
	}
	if cfg.Options.Port != "8080" {
		t.Errorf("Port = %q; want 8080", cfg.Options.Port)
	}
	if cfg.Scrape.UserAgent == "" {
		t.Error("expected a default browser user agent")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v; want nil", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{"GENIUS_ACCESS_TOKEN": ""},
			wantErr: true,
		},
		{
			name:    "bad api url",
			env:     map[string]string{"GENIUS_ACCESS_TOKEN": "t", "GENIUS_API_URL": "not a url"},
			wantErr: true,
		},
		{
			name: "custom urls",
			env: map[string]string{
				"GENIUS_ACCESS_TOKEN": "t",
				"GENIUS_API_URL":      "http://127.0.0.1:9000",
				"LRCLIB_API_URL":      "http://127.0.0.1:9001/api",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			err := NewConfig().Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrConfiguration) {
				t.Errorf("error %v should wrap ErrConfiguration", err)
			}
		})
	}
}

func TestSentryIsEnabled(t *testing.T) {
	if (&SentryConfig{}).IsEnabled() {
		t.Error("empty DSN should disable sentry")
	}
	if !(&SentryConfig{DSN: "https://key@example.com/1"}).IsEnabled() {
		t.Error("DSN set should enable sentry")
	}
}
