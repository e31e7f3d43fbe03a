package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Perch server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	AI       AIConfig
	Jobs     JobsConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type AIConfig struct {
	// DefaultTier is the capability tier used when a request does not name
	// one: fast, balanced, or quality.
	DefaultTier      string
	InferenceTimeout time.Duration
	Claude           ClaudeConfig
	OpenAI           OpenAIConfig
}

type ClaudeConfig struct {
	APIKey  string
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

type JobsConfig struct {
	// Retention is how long job records are kept after they started.
	Retention time.Duration
	// MaxJobs caps the job list surface.
	MaxJobs int
}

var validTiers = map[string]bool{
	"fast":     true,
	"balanced": true,
	"quality":  true,
}

// Load reads configuration from the environment (and an optional .env file)
// and returns a validated Config. Returns an error with a descriptive
// message if any required value is missing or invalid.
func Load() (*Config, error) {
	// A missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PERCH_PORT", 8080),
			Env:  envString("PERCH_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		AI: AIConfig{
			DefaultTier:      envString("AI_DEFAULT_TIER", "balanced"),
			InferenceTimeout: envDurationSecs("AI_INFERENCE_TIMEOUT_SECS", 60*time.Second),
			Claude: ClaudeConfig{
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
			},
		},
		Jobs: JobsConfig{
			Retention: envDuration("JOBS_RETENTION", 24*time.Hour),
			MaxJobs:   envInt("JOBS_MAX", 20),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if !validTiers[c.AI.DefaultTier] {
		return fmt.Errorf("AI_DEFAULT_TIER must be one of fast, balanced, quality; got %q", c.AI.DefaultTier)
	}

	if c.Jobs.MaxJobs < 1 {
		return fmt.Errorf("JOBS_MAX must be at least 1; got %d", c.Jobs.MaxJobs)
	}
	if c.Jobs.Retention <= 0 {
		return fmt.Errorf("JOBS_RETENTION must be positive; got %s", c.Jobs.Retention)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
