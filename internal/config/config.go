package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config models checkline.yml.
type Config struct {
	Service struct {
		BaseURL string `yaml:"base_url"`
		Origin  string `yaml:"origin"`
		Referer string `yaml:"referer"`
	} `yaml:"service"`
	Client struct {
		Retries      int `yaml:"retries"`
		RetryDelayMS int `yaml:"retry_delay_ms"`
	} `yaml:"client"`
	Schedule struct {
		IntervalHours int `yaml:"interval_hours"`
	} `yaml:"schedule"`
	Accounts []Account `yaml:"accounts"`
}

// Account holds one wallet credential. The private key may reference an
// environment variable with $NAME/${NAME} so that secrets can stay out of
// the file itself.
type Account struct {
	Label      string `yaml:"label,omitempty"`
	PrivateKey string `yaml:"private_key"`
}

// Key returns the resolved private key with environment references expanded
// and any 0x prefix stripped.
func (a Account) Key() string {
	k := strings.TrimSpace(os.ExpandEnv(a.PrivateKey))
	return strings.TrimPrefix(k, "0x")
}

// RetryDelay returns the configured delay between client retries.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Client.RetryDelayMS) * time.Millisecond
}

// Interval returns the pause between scheduler passes.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Schedule.IntervalHours) * time.Hour
}

// Load reads and validates config from workspace. A workspace .env file, if
// present, is loaded first so accounts can reference variables from it.
func Load(workspace string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(workspace, ".env"))
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with checkline config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// FromYAML parses, defaults, and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = "https://api.dailyquest.gg/api"
	}
	if c.Service.Origin == "" {
		c.Service.Origin = "https://app.dailyquest.gg"
	}
	if c.Service.Referer == "" {
		c.Service.Referer = c.Service.Origin + "/"
	}
	if c.Client.Retries == 0 {
		c.Client.Retries = 3
	}
	if c.Client.RetryDelayMS == 0 {
		c.Client.RetryDelayMS = 1200
	}
	if c.Schedule.IntervalHours == 0 {
		c.Schedule.IntervalHours = 24
	}
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if len(c.Accounts) == 0 {
		return fmt.Errorf("config.accounts is required; at least one credential must be configured")
	}
	for i, acc := range c.Accounts {
		if strings.TrimSpace(acc.PrivateKey) == "" {
			return fmt.Errorf("account %d has empty private_key", i)
		}
	}
	if c.Client.Retries < 1 {
		return fmt.Errorf("config.client.retries must be at least 1")
	}
	if c.Schedule.IntervalHours < 1 {
		return fmt.Errorf("config.schedule.interval_hours must be at least 1")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "checkline.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

const defaultTemplate = `service:
  base_url: https://api.dailyquest.gg/api
  origin: https://app.dailyquest.gg

client:
  retries: 3
  retry_delay_ms: 1200

schedule:
  interval_hours: 24

accounts:
  # Keys may be inlined or pulled from the environment / workspace .env.
  - label: main
    private_key: ${CHECKLINE_PK_1}
`
