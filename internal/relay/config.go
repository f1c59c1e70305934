package relay

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultBroker      = "tcp://localhost:1883"
	defaultTopic       = "lab/03/ultrassonico"
	defaultClientID    = "edge-relay"
	defaultMinInterval = 3 * time.Second
	defaultTimeout     = 2 * time.Second
)

type fileConfig struct {
	Broker      string `yaml:"broker"`
	Topic       string `yaml:"topic"`
	ClientID    string `yaml:"client_id"`
	ForwardURL  string `yaml:"forward_url"`
	MinInterval string `yaml:"min_interval"`
	Timeout     string `yaml:"timeout"`
}

// Config holds one relay instance's settings. Each device feed runs its own
// relay with its own config; instances share nothing.
type Config struct {
	Broker      string
	Topic       string
	ClientID    string
	ForwardURL  string
	MinInterval time.Duration
	Timeout     time.Duration
}

// LoadConfig builds the relay config from a YAML file named by RELAY_CONFIG
// (when set) with env-var overrides and defaults.
func LoadConfig() (Config, error) {
	cfg := Config{
		Broker:      defaultBroker,
		Topic:       defaultTopic,
		ClientID:    defaultClientID,
		MinInterval: defaultMinInterval,
		Timeout:     defaultTimeout,
	}

	if path := os.Getenv("RELAY_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("relay config: %w", err)
		}
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return cfg, fmt.Errorf("relay config: %w", err)
		}
		if err := cfg.applyFile(file); err != nil {
			return cfg, err
		}
	}

	cfg.Broker = getenvDefault("MQTT_BROKER", cfg.Broker)
	cfg.Topic = getenvDefault("MQTT_TOPIC", cfg.Topic)
	cfg.ClientID = getenvDefault("MQTT_CLIENT_ID", cfg.ClientID)
	cfg.ForwardURL = getenvDefault("FORWARD_URL", cfg.ForwardURL)
	cfg.MinInterval = getenvDuration("FORWARD_INTERVAL", cfg.MinInterval)
	cfg.Timeout = getenvDuration("FORWARD_TIMEOUT", cfg.Timeout)

	if cfg.ForwardURL == "" {
		return cfg, errors.New("relay config: forward url required")
	}
	return cfg, nil
}

func (c *Config) applyFile(file fileConfig) error {
	if file.Broker != "" {
		c.Broker = file.Broker
	}
	if file.Topic != "" {
		c.Topic = file.Topic
	}
	if file.ClientID != "" {
		c.ClientID = file.ClientID
	}
	if file.ForwardURL != "" {
		c.ForwardURL = file.ForwardURL
	}
	if file.MinInterval != "" {
		parsed, err := time.ParseDuration(file.MinInterval)
		if err != nil {
			return fmt.Errorf("relay config: min_interval: %w", err)
		}
		c.MinInterval = parsed
	}
	if file.Timeout != "" {
		parsed, err := time.ParseDuration(file.Timeout)
		if err != nil {
			return fmt.Errorf("relay config: timeout: %w", err)
		}
		c.Timeout = parsed
	}
	return nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
