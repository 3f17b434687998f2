// Package config provides application-wide configuration loaded from env vars
// and an optional YAML file. All fields have safe defaults so the binary runs
// locally without any setup. Precedence: defaults, then file, then env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for shopwise.
type Config struct {
	// Chat model
	ChatProvider      string        `yaml:"chatProvider"`      // CHAT_PROVIDER, default "openai"
	OpenAIBaseURL     string        `yaml:"openaiBaseURL"`     // OPENAI_BASE_URL, default "https://api.openai.com/v1"
	OpenAIAPIKey      string        `yaml:"openaiAPIKey"`      // OPENAI_API_KEY
	OpenAIModel       string        `yaml:"openaiModel"`       // OPENAI_MODEL, default "gpt-4o-mini"
	OllamaBaseURL     string        `yaml:"ollamaBaseURL"`     // OLLAMA_BASE_URL, default "http://localhost:11434/v1"
	OllamaChatModel   string        `yaml:"ollamaChatModel"`   // OLLAMA_CHAT_MODEL, default "llama3.2:3b"
	ChatTemperature   float32       `yaml:"chatTemperature"`   // CHAT_TEMPERATURE, default 0.5
	ChatMaxTokens     int           `yaml:"chatMaxTokens"`     // CHAT_MAX_TOKENS, default 512
	ChatHeaderTimeout time.Duration `yaml:"chatHeaderTimeout"` // CHAT_HEADER_TIMEOUT, default 30s

	// Storage
	DatabasePath string `yaml:"databasePath"` // DATABASE_PATH, default "./data/shopwise.db"

	// Logging
	LogLevel  string `yaml:"logLevel"`  // LOG_LEVEL, default "info"
	LogFormat string `yaml:"logFormat"` // LOG_FORMAT, default "json"

	// HTTP
	HTTPHost string `yaml:"httpHost"` // HTTP_HOST, default "0.0.0.0"
	HTTPPort int    `yaml:"httpPort"` // HTTP_PORT, default 8080

	// Externally visible base URL, advertised in the A2A agent card
	PublicURL string `yaml:"publicURL"` // PUBLIC_URL, default "http://localhost:8080"
}

const (
	envKeyChatProvider      = "CHAT_PROVIDER"
	envKeyOpenAIBaseURL     = "OPENAI_BASE_URL"
	envKeyOpenAIAPIKey      = "OPENAI_API_KEY"
	envKeyOpenAIModel       = "OPENAI_MODEL"
	envKeyOllamaBaseURL     = "OLLAMA_BASE_URL"
	envKeyOllamaChatModel   = "OLLAMA_CHAT_MODEL"
	envKeyChatTemperature   = "CHAT_TEMPERATURE"
	envKeyChatMaxTokens     = "CHAT_MAX_TOKENS"
	envKeyChatHeaderTimeout = "CHAT_HEADER_TIMEOUT"
	envKeyDatabasePath      = "DATABASE_PATH"
	envKeyLogLevel          = "LOG_LEVEL"
	envKeyLogFormat         = "LOG_FORMAT"
	envKeyHTTPHost          = "HTTP_HOST"
	envKeyHTTPPort          = "HTTP_PORT"
	envKeyPublicURL         = "PUBLIC_URL"
)

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		ChatProvider:      "openai",
		OpenAIBaseURL:     "https://api.openai.com/v1",
		OpenAIModel:       "gpt-4o-mini",
		OllamaBaseURL:     "http://localhost:11434/v1",
		OllamaChatModel:   "llama3.2:3b",
		ChatTemperature:   0.5,
		ChatMaxTokens:     512,
		ChatHeaderTimeout: 30 * time.Second,
		DatabasePath:      "./data/shopwise.db",
		LogLevel:          "info",
		LogFormat:         "json",
		HTTPHost:          "0.0.0.0",
		HTTPPort:          8080,
		PublicURL:         "http://localhost:8080",
	}
}

// LoadFile overlays the YAML file at path on the defaults, then applies env vars.
// An empty path reads only the environment.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ChatProvider = envOr(envKeyChatProvider, c.ChatProvider)
	c.OpenAIBaseURL = envOr(envKeyOpenAIBaseURL, c.OpenAIBaseURL)
	c.OpenAIAPIKey = envOr(envKeyOpenAIAPIKey, c.OpenAIAPIKey)
	c.OpenAIModel = envOr(envKeyOpenAIModel, c.OpenAIModel)
	c.OllamaBaseURL = envOr(envKeyOllamaBaseURL, c.OllamaBaseURL)
	c.OllamaChatModel = envOr(envKeyOllamaChatModel, c.OllamaChatModel)
	c.ChatTemperature = float32(envFloatOr(envKeyChatTemperature, float64(c.ChatTemperature)))
	c.ChatMaxTokens = envIntOr(envKeyChatMaxTokens, c.ChatMaxTokens)
	c.ChatHeaderTimeout = envDurationOr(envKeyChatHeaderTimeout, c.ChatHeaderTimeout)
	c.DatabasePath = envOr(envKeyDatabasePath, c.DatabasePath)
	c.LogLevel = envOr(envKeyLogLevel, c.LogLevel)
	c.LogFormat = envOr(envKeyLogFormat, c.LogFormat)
	c.HTTPHost = envOr(envKeyHTTPHost, c.HTTPHost)
	c.HTTPPort = envIntOr(envKeyHTTPPort, c.HTTPPort)
	c.PublicURL = envOr(envKeyPublicURL, c.PublicURL)
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr is envOr for integers. Unparseable values fall back.
func envIntOr(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 32); err == nil {
		return f
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
