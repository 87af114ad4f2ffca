package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server ServerConfig
	Client ClientConfig
	LLM    LLMConfig
	Auth   AuthConfig
	Store  StoreConfig
	Chat   ChatConfig
	Log    LogConfig
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// ClientConfig holds the sync client configuration. BaseURL is resolved once
// at startup; it differs per deployment (local daemon vs hosted backend).
type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LLMConfig holds the chat model configuration
type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float32 `mapstructure:"temperature"`
}

// AuthConfig holds the bearer-token verification configuration
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// StoreConfig holds the SQLite store configuration
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ChatConfig holds conversation limits
type ChatConfig struct {
	MaxConversationLength int `mapstructure:"max_conversation_length"`
	KeepRecentMessages    int `mapstructure:"keep_recent_messages"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8000")
	v.SetDefault("client.base_url", "http://localhost:8000")
	v.SetDefault("client.timeout", 30*time.Second)
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	// Secrets default to empty so environment overrides reach Unmarshal.
	v.SetDefault("llm.api_key", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("llm.model", "deepseek/deepseek-chat")
	v.SetDefault("llm.max_tokens", 1000)
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("store.path", "carebot.db")
	v.SetDefault("chat.max_conversation_length", 50)
	v.SetDefault("chat.keep_recent_messages", 20)
	v.SetDefault("log.level", "info")
}

// Load loads the configuration from config.yaml (or CONFIG_PATH) with
// CAREBOT_-prefixed environment variables taking precedence. A missing config
// file is not an error; defaults plus environment cover every field.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CAREBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
