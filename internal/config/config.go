package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

// KeyringService is the fixed identifier under which the API key is stored
// in the OS keychain.
const KeyringService = "maproulette"

const keyringUser = "apikey"

type Config struct {
	BaseURL    string
	APIKey     string
	VerifyCert bool
	Timeout    time.Duration
}

// LoadFromEnv builds a Config from environment variables, falling back to
// the OS keychain for the API key.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		BaseURL:    getEnvOrDefault("MAPROULETTE_URL", "https://maproulette.org/"),
		APIKey:     os.Getenv("MAPROULETTE_API_KEY"),
		VerifyCert: !strings.EqualFold(os.Getenv("MAPROULETTE_VERIFY_CERT"), "false"),
		Timeout:    30 * time.Second,
	}

	if cfg.APIKey == "" {
		if key, err := keyring.Get(KeyringService, keyringUser); err == nil {
			cfg.APIKey = key
		}
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is empty (set MAPROULETTE_URL)")
	}

	if c.APIKey == "" {
		return fmt.Errorf("no API key configured (set MAPROULETTE_API_KEY or run 'mrmetrics set-key')")
	}

	return nil
}

// StoreAPIKey saves the key in the OS keychain under the fixed service
// identifier.
func StoreAPIKey(key string) error {
	return keyring.Set(KeyringService, keyringUser, key)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
