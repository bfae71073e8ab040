package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default configuration file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	// Storage: dataDir selects the JSON snapshot store; databaseURL, when
	// set, selects Postgres instead.
	DataDir     string `yaml:"dataDir"`
	DatabaseURL string `yaml:"databaseURL"`

	// Generation backend.
	Provider        string `yaml:"provider"` // "gemini" (default) or "openai-compat"
	GeminiAPIKey    string `yaml:"geminiAPIKey"`
	GenerationModel string `yaml:"generationModel"`
	OpenAIBaseURL   string `yaml:"openaiBaseURL"`
	OpenAIAPIKey    string `yaml:"openaiAPIKey"`

	// Rate limiting for the generation endpoint (0 disables).
	RedisAddr                  string `yaml:"redisAddr"`
	RedisPassword              string `yaml:"redisPassword"`
	GenerateRateLimitPerMinute int    `yaml:"generateRateLimitPerMinute"`

	// Profile sessions.
	SessionSecret string `yaml:"sessionSecret"`

	// Optional export archive in MinIO/S3-compatible storage.
	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("CHATFIC_SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DataDir == "" && cfg.DatabaseURL == "" {
		return errors.New("config: dataDir or databaseURL is required (set in config.yaml)")
	}
	switch cfg.Provider {
	case "", "gemini", "openai-compat":
	default:
		return fmt.Errorf("config: unknown provider %q", cfg.Provider)
	}
	if cfg.Provider == "openai-compat" && cfg.OpenAIBaseURL == "" {
		return errors.New("config: openaiBaseURL is required for the openai-compat provider")
	}
	if cfg.GenerateRateLimitPerMinute > 0 && cfg.RedisAddr == "" {
		return errors.New("config: redisAddr is required when generateRateLimitPerMinute is set")
	}
	return nil
}
