package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the application configuration
type Config struct {
	General struct {
		Port           int    `koanf:"port"`
		AgentSecret    string `koanf:"agent_secret"`
		RunIntervalMin int    `koanf:"run_interval_minutes"`
		DefaultAI      string `koanf:"default_ai"`
	} `koanf:"general"`

	AI map[string]map[string]interface{} `koanf:"ai"`

	Delivery struct {
		BaseURL string `koanf:"base_url"`
		Token   string `koanf:"token"`
	} `koanf:"delivery"`

	Classifier struct {
		BaseURL string `koanf:"base_url"`
		Token   string `koanf:"token"`
	} `koanf:"classifier"`
}

// LoadConfig loads the configuration from a file
func LoadConfig(configPath string) (*Config, error) {
	var k = koanf.New(".")

	// Set up default configuration
	k.Load(confmap.Provider(map[string]interface{}{
		"general.port":                 8890,
		"general.run_interval_minutes": 60,
		"general.default_ai":           "gemini",
	}, "."), nil)

	// Load from TOML file if it exists
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config: %w", err)
		}
	} else {
		// Try default locations - prioritize cpdata for containerized deployments
		defaultPaths := []string{"./cpdata/claimspilot.toml", "./claimspilot.toml", "$HOME/.claimspilot.toml"}
		for _, path := range defaultPaths {
			path = os.ExpandEnv(path)
			if _, err := os.Stat(path); err == nil {
				if err := k.Load(file.Provider(path), toml.Parser()); err == nil {
					break
				}
			}
		}
	}

	// Load from environment variables with prefix CLAIMSPILOT_
	k.Load(env.Provider("CLAIMSPILOT_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "CLAIMSPILOT_")), "_", ".", 1)
	}), nil)

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return &config, nil
}

// InitConfig initializes a new configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	sampleConfig := `# Claimspilot Configuration

[general]
port = 8890
agent_secret = "change-me"
run_interval_minutes = 60
default_ai = "gemini"

[ai.gemini]
api_key = "your-gemini-api-key"
model = "gemini-2.5-flash"

[ai.openai]
api_key = "your-openai-api-key"
model = "gpt-4o-mini"

[delivery]
base_url = "https://delivery.example.com"
token = "your-delivery-token"

[classifier]
base_url = "https://classifier.example.com"
token = "your-classifier-token"
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}

// Validate validates the configuration
func Validate(config *Config) error {
	if config.General.AgentSecret == "" {
		return fmt.Errorf("agent secret is required")
	}

	if config.General.DefaultAI == "" {
		return fmt.Errorf("default AI provider is required")
	}

	aiConfig, ok := config.AI[config.General.DefaultAI]
	if !ok {
		return fmt.Errorf("configuration for AI provider %s not found", config.General.DefaultAI)
	}

	switch config.General.DefaultAI {
	case "gemini", "openai":
		if _, ok := aiConfig["api_key"]; !ok {
			return fmt.Errorf("%s api_key is required", config.General.DefaultAI)
		}
	}

	if config.Delivery.BaseURL == "" {
		return fmt.Errorf("delivery base_url is required")
	}

	return nil
}

// AIAPIKey returns the configured API key for the named provider, empty when
// missing. A missing key is a configuration error handled by the caller, not
// a load failure.
func (c *Config) AIAPIKey(provider string) string {
	providerConfig, ok := c.AI[provider]
	if !ok {
		return ""
	}
	key, _ := providerConfig["api_key"].(string)
	return key
}

// AIModel returns the configured model name for the named provider
func (c *Config) AIModel(provider string) string {
	providerConfig, ok := c.AI[provider]
	if !ok {
		return ""
	}
	model, _ := providerConfig["model"].(string)
	return model
}
