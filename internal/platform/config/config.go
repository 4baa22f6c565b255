// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Data backends.
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
)

// Companion providers. An empty provider disables the AI companion.
const (
	ProviderNone   = ""
	ProviderOpenAI = "openai"
	ProviderGenAI  = "genai"
)

// Config holds all server settings.
type Config struct {
	Port                         string
	ProjectID                    string
	GoogleApplicationCredentials string
	DataBackend                  string
	AllowedOrigins               []string
	Companion                    CompanionConfig
}

// CompanionConfig configures the AI model behind journal comments and chat.
type CompanionConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// Enabled reports whether a companion provider is configured.
func (c CompanionConfig) Enabled() bool {
	return c.Provider != ProviderNone
}

// Load reads an optional .env file (missing files are ignored, set variables
// are never overridden) and then the process environment.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Port: firstNonEmpty(getenv("PORT"), "8080"),
		ProjectID: firstNonEmpty(
			getenv("FIREBASE_PROJECT_ID"),
			getenv("GOOGLE_CLOUD_PROJECT"),
			getenv("GCLOUD_PROJECT"),
		),
		GoogleApplicationCredentials: getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		DataBackend:                  strings.ToLower(firstNonEmpty(getenv("DATA_BACKEND"), BackendFirestore)),
		AllowedOrigins:               splitList(getenv("CORS_ALLOWED_ORIGINS")),
		Companion: CompanionConfig{
			Provider: strings.ToLower(strings.TrimSpace(getenv("COMPANION_PROVIDER"))),
			APIKey:   getenv("COMPANION_API_KEY"),
			BaseURL:  getenv("COMPANION_BASE_URL"),
			Model:    getenv("COMPANION_MODEL"),
			Timeout:  30 * time.Second,
		},
	}

	var errs []error
	switch cfg.DataBackend {
	case BackendFirestore:
		if cfg.ProjectID == "" {
			errs = append(errs, errors.New("FIREBASE_PROJECT_ID is required for the firestore backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("DATA_BACKEND must be %q or %q, got %q",
			BackendFirestore, BackendMemory, cfg.DataBackend))
	}

	switch cfg.Companion.Provider {
	case ProviderNone:
	case ProviderOpenAI, ProviderGenAI:
		if cfg.Companion.APIKey == "" {
			errs = append(errs, errors.New("COMPANION_API_KEY is required when COMPANION_PROVIDER is set"))
		}
	default:
		errs = append(errs, fmt.Errorf("COMPANION_PROVIDER must be %q, %q or empty, got %q",
			ProviderOpenAI, ProviderGenAI, cfg.Companion.Provider))
	}

	if raw := getenv("COMPANION_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("COMPANION_TIMEOUT must be a positive duration, got %q", raw))
		} else {
			cfg.Companion.Timeout = d
		}
	}

	return cfg, errors.Join(errs...)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
