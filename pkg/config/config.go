package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Env  string
	Port string

	// Neo4j
	Neo4jURL      string
	Neo4jUser     string
	Neo4jPassword string

	// Inference service
	OpenAIAPIKey  string
	OpenAIBaseURL string
	Model         string
	Temperature   float64

	// Prompts
	PromptDir string

	// Memory persistence
	MemoryDir    string // directory for JSON memory dumps
	MemoryDB     string // sqlite path; when set, snapshots go to sqlite instead
	MemoryWindow int    // number of recent turns handed to the classifier
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Env:           getEnv("ENV", "development"),
		Port:          getEnv("PORT", "8080"),
		Neo4jURL:      getEnv("NEO4J_URL", "bolt://localhost:7687"),
		Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		Model:         getEnv("MODEL", "gpt-4-turbo"),
		Temperature:   getEnvFloat("TEMPERATURE", 0.0),
		PromptDir:     getEnv("PROMPT_DIR", ""),
		MemoryDir:     getEnv("MEMORY_DIR", "."),
		MemoryDB:      getEnv("MEMORY_DB", ""),
		MemoryWindow:  getEnvInt("MEMORY_WINDOW", 20),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.Neo4jURL == "" {
		return fmt.Errorf("NEO4J_URL is required")
	}
	if c.Neo4jUser == "" {
		return fmt.Errorf("NEO4J_USER is required")
	}
	if c.Neo4jPassword == "" {
		return fmt.Errorf("NEO4J_PASSWORD is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Model == "" {
		return fmt.Errorf("MODEL is required")
	}
	if c.MemoryWindow <= 0 {
		return fmt.Errorf("MEMORY_WINDOW must be positive")
	}
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var result float64
		if _, err := fmt.Sscanf(value, "%f", &result); err == nil {
			return result
		}
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
