// Package config provides configuration management for SAGA.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration.
type Config struct {
	// Article archive settings
	ArticleDataDir string

	// Graph API settings (external collaborator)
	GraphAPIURL     string
	GraphAPITimeout time.Duration

	// Search settings
	SearchMinHits  int
	SearchMaxLimit int

	// Server settings
	HTTPAddr string
	Debug    bool
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Try to load .env file
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	cfg := &Config{
		// Archive
		ArticleDataDir: getEnv("ARTICLE_DATA_DIR", "data/raw_news"),

		// Graph API
		GraphAPIURL:     getEnv("GRAPH_API_URL", "http://localhost:8100"),
		GraphAPITimeout: getEnvDuration("GRAPH_API_TIMEOUT", 30*time.Second),

		// Search
		SearchMinHits:  getEnvInt("SEARCH_MIN_HITS", 2),
		SearchMaxLimit: getEnvInt("SEARCH_MAX_LIMIT", 100),

		// Server
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Debug:    getEnvBool("DEBUG", false),
	}

	return cfg, nil
}

// Validate checks if required configuration is present.
func (c *Config) Validate() error {
	if c.GraphAPIURL == "" {
		log.Warn().Msg("GRAPH_API_URL not set, report proxying will be disabled")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
