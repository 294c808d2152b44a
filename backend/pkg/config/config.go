package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Port string `yaml:"port"`
	Env  string `yaml:"env"`

	// Neo4j
	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUser     string `yaml:"neo4j_user"`
	Neo4jPassword string `yaml:"neo4j_password"`

	// Admin token guarding the privileged botscore setter
	AdminToken string `yaml:"admin_token"`

	// Feed
	FeedLookupConcurrency int `yaml:"feed_lookup_concurrency"` // max concurrent author lookups per enrichment pass

	// Link previews
	PreviewEnabled      bool `yaml:"preview_enabled"`
	PreviewTimeoutMs    int  `yaml:"preview_timeout_ms"`
	PreviewMaxBodyBytes int  `yaml:"preview_max_body_bytes"`
}

// Load reads configuration from environment variables, optionally overlaid
// by a YAML file named in CONFIG_FILE.
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   getEnv("ENV", "development"),
		Neo4jURI:              getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:             getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:         getEnv("NEO4J_PASSWORD", "password"),
		AdminToken:            getEnv("ADMIN_TOKEN", ""),
		FeedLookupConcurrency: getEnvInt("FEED_LOOKUP_CONCURRENCY", 8),
		PreviewEnabled:        getEnvBool("PREVIEW_ENABLED", false),
		PreviewTimeoutMs:      getEnvInt("PREVIEW_TIMEOUT_MS", 3000),
		PreviewMaxBodyBytes:   getEnvInt("PREVIEW_MAX_BODY_BYTES", 1<<20),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURI == "" {
		return fmt.Errorf("NEO4J_URI is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.FeedLookupConcurrency < 1 {
		return fmt.Errorf("FEED_LOOKUP_CONCURRENCY must be at least 1")
	}
	// Admin token is optional for development; the score endpoint rejects
	// every request while it is unset.
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "TRUE", "yes":
		return true
	case "0", "false", "FALSE", "no":
		return false
	}
	return defaultValue
}
