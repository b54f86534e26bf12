package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Chart    ChartConfig    `yaml:"chart"`
	Feed     FeedConfig     `yaml:"feed"`
	Webhook  WebhookConfig  `yaml:"webhook"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ChartConfig carries the symbol and exchange context stamped onto alerts.
type ChartConfig struct {
	Symbol   string `yaml:"symbol"`
	Exchange string `yaml:"exchange"`
}

// FeedConfig represents the live market data feed configuration
type FeedConfig struct {
	Provider string `yaml:"provider"`
	Symbol   string `yaml:"symbol"`
	IsActive bool   `yaml:"is_active"`
}

// WebhookConfig carries the default outbound webhook target used when an
// alert's own settings leave the URL empty.
type WebhookConfig struct {
	DefaultURL string `yaml:"default_url"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080", Host: "localhost"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "openalgo-chart.db"},
		Chart:    ChartConfig{Symbol: "BTCUSDT", Exchange: "BINANCE"},
		Feed:     FeedConfig{Provider: "binance", Symbol: "BTCUSDT", IsActive: false},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
