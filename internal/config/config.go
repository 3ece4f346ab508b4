// Package config handles loading and validation of service configuration.
// Supports both development (env vars) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Config holds all service configuration.
// Environment determines whether upstream credentials load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port          string
	Environment   string // "development" or "production"
	LogLevel      string // "debug", "info", "warn", "error"
	AllowedOrigin string // CORS origin for the storefront, "*" if unset

	// GCP settings (required in production)
	GCPProject string
	StoreID    string

	// Store-specific configuration (loaded from secrets)
	Store StoreConfig

	// Address defaulting policy, overridable per deployment
	Defaults Defaults
}

// StoreConfig contains upstream platform settings.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type StoreConfig struct {
	BaseURL   string `json:"base_url"`
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`

	// ShopSegment is the optional multistore path segment inserted into
	// webservice URLs (/api/{shop}/...). Empty for single-shop platforms.
	ShopSegment string `json:"shop_segment,omitempty"`

	// MinAPIVersion rejects upstream platforms older than this webservice
	// version at login time. Empty disables the check.
	MinAPIVersion string `json:"min_api_version,omitempty"`
}

// Defaults holds the sentinel values applied when imported rows leave
// fields empty. These were hard-coded globals in earlier service variants;
// they are explicit and overridable here.
type Defaults struct {
	// FallbackCountry fills the country field of rows that omit it.
	FallbackCountry string `json:"fallback_country"`

	// OrganizationSentinel fills the organization field of records lacking a
	// named recipient, so they still pass upstream validation.
	OrganizationSentinel string `json:"organization_sentinel"`

	// StateSentinel marks state/province as not applicable.
	StateSentinel string `json:"state_sentinel"`
}

// defaultDefaults returns the standard sentinel set.
func defaultDefaults() Defaults {
	return Defaults{
		FallbackCountry:      "FR",
		OrganizationSentinel: "Distribution",
		StateSentinel:        "NA",
	}
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	// Otherwise, use ENV vars / Secret Manager approach
	cfg := &Config{
		Port:          envOrDefault("PORT", "8080"),
		Environment:   envOrDefault("ENVIRONMENT", "development"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		AllowedOrigin: envOrDefault("ALLOWED_ORIGIN", "*"),
		GCPProject:    os.Getenv("GCP_PROJECT"),
		StoreID:       os.Getenv("STORE_ID"),
		Defaults:      defaultDefaults(),
	}

	// StoreID required in all environments
	if cfg.StoreID == "" {
		return nil, fmt.Errorf("STORE_ID environment variable required")
	}

	// Load store config based on environment
	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	cfg.applyDefaultOverrides()

	// Validate required store fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Use a struct that matches the JSON structure
	var fileConfig struct {
		Port          string      `json:"port"`
		Environment   string      `json:"environment"`
		LogLevel      string      `json:"log_level"`
		AllowedOrigin string      `json:"allowed_origin"`
		StoreID       string      `json:"store_id"`
		Store         StoreConfig `json:"store"`
		Defaults      *Defaults   `json:"defaults"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:          withDefault(fileConfig.Port, "8080"),
		Environment:   withDefault(fileConfig.Environment, "development"),
		LogLevel:      withDefault(fileConfig.LogLevel, "info"),
		AllowedOrigin: withDefault(fileConfig.AllowedOrigin, "*"),
		StoreID:       fileConfig.StoreID,
		Store:         fileConfig.Store,
		Defaults:      defaultDefaults(),
	}

	if fileConfig.Defaults != nil {
		cfg.mergeDefaults(*fileConfig.Defaults)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches store config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{store_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.StoreID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	return nil
}

// loadFromEnv reads store config from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Store = StoreConfig{
		BaseURL:       os.Getenv("STORE_BASE_URL"),
		APIKey:        os.Getenv("STORE_API_KEY"),
		APISecret:     os.Getenv("STORE_API_SECRET"),
		ShopSegment:   os.Getenv("STORE_SHOP_SEGMENT"),
		MinAPIVersion: os.Getenv("STORE_MIN_API_VERSION"),
	}
	return nil
}

// applyDefaultOverrides reads sentinel overrides from the environment.
func (c *Config) applyDefaultOverrides() {
	c.mergeDefaults(Defaults{
		FallbackCountry:      os.Getenv("FALLBACK_COUNTRY"),
		OrganizationSentinel: os.Getenv("ORGANIZATION_SENTINEL"),
		StateSentinel:        os.Getenv("STATE_SENTINEL"),
	})
}

// mergeDefaults overlays non-empty fields of d onto the current defaults.
func (c *Config) mergeDefaults(d Defaults) {
	if d.FallbackCountry != "" {
		c.Defaults.FallbackCountry = strings.ToUpper(d.FallbackCountry)
	}
	if d.OrganizationSentinel != "" {
		c.Defaults.OrganizationSentinel = d.OrganizationSentinel
	}
	if d.StateSentinel != "" {
		c.Defaults.StateSentinel = d.StateSentinel
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.StoreID == "" {
		return fmt.Errorf("store_id is required")
	}
	if c.Store.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	if c.Store.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if c.Store.APISecret == "" {
		return fmt.Errorf("api_secret is required")
	}

	// Validate base URL is well-formed
	if _, err := url.Parse(c.Store.BaseURL); err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}

	return nil
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
