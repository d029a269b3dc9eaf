package config

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DBName   string `yaml:"dbname"`
		Port     string `yaml:"port"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`
	Chat struct {
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		Model     string `yaml:"model"`
		MaxTokens uint32 `yaml:"max_tokens"`
	} `yaml:"chat"`
	Limits struct {
		AnonymousDaily  int `yaml:"anonymous_daily"`
		RegisteredDaily int `yaml:"registered_daily"`
	} `yaml:"limits"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Turnstile struct {
		SecretKey string `yaml:"secret_key"`
	} `yaml:"turnstile"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

// GlobalConfig is the global configuration instance
var GlobalConfig Config

// DSN generates the PostgreSQL DSN from database config
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.Database.Host,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.Port,
		c.Database.SSLMode,
	)
}

// LoadConfig reads and parses the YAML configuration file into GlobalConfig,
// then applies environment overrides for secrets.
func LoadConfig(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, &GlobalConfig); err != nil {
		return err
	}

	applyEnvOverrides()
	applyDefaults()

	// Validate required fields
	if GlobalConfig.Database.Host == "" {
		log.Fatal("database.host is required in config.yaml")
	}
	if GlobalConfig.Database.User == "" {
		log.Fatal("database.user is required in config.yaml")
	}
	if GlobalConfig.Database.DBName == "" {
		log.Fatal("database.dbname is required in config.yaml")
	}
	if GlobalConfig.Database.Port == "" {
		log.Fatal("database.port is required in config.yaml")
	}
	if GlobalConfig.Server.Port < 1 || GlobalConfig.Server.Port > 65535 {
		log.Fatal("server.port must be between 1 and 65535")
	}

	// The chat backend is an external collaborator; its absence disables chat
	// but must not prevent startup.
	if GlobalConfig.Chat.BaseURL == "" {
		log.Println("WARN: chat.base_url is not set. Chat functionality will not work.")
	}

	return nil
}

func applyEnvOverrides() {
	if v := os.Getenv("SUPACHAT_DB_PASSWORD"); v != "" {
		GlobalConfig.Database.Password = v
	}
	if v := os.Getenv("SUPACHAT_CHAT_API_KEY"); v != "" {
		GlobalConfig.Chat.APIKey = v
	}
	if v := os.Getenv("SUPACHAT_JWT_SECRET"); v != "" {
		GlobalConfig.Auth.JWTSecret = v
	}
	if v := os.Getenv("SUPACHAT_TURNSTILE_SECRET"); v != "" {
		GlobalConfig.Turnstile.SecretKey = v
	}
}

func applyDefaults() {
	if GlobalConfig.Limits.AnonymousDaily == 0 {
		GlobalConfig.Limits.AnonymousDaily = 2
	}
	if GlobalConfig.Limits.RegisteredDaily == 0 {
		GlobalConfig.Limits.RegisteredDaily = 10
	}
	if GlobalConfig.Chat.Model == "" {
		GlobalConfig.Chat.Model = "gpt-4o-mini"
	}
	if GlobalConfig.Chat.MaxTokens == 0 {
		GlobalConfig.Chat.MaxTokens = 4096
	}
	if GlobalConfig.Database.SSLMode == "" {
		GlobalConfig.Database.SSLMode = "disable"
	}
}
