package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`

	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Board struct {
		RefreshSeconds    int `yaml:"refresh_seconds"`
		TriggersPerMinute int `yaml:"triggers_per_minute"`
	} `yaml:"board"`
}

func Load(path string) (*Config, error) {
	defaulted := path == ""
	if defaulted {
		path = "configs/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		// The board runs fine on defaults when no config file exists.
		if defaulted && os.IsNotExist(err) {
			return finish(&cfg)
		}
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/machiai.db"
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	return cfg, nil
}

// RefreshInterval is how often the board re-evaluates itself.
func (c *Config) RefreshInterval() time.Duration {
	if c.Board.RefreshSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Board.RefreshSeconds) * time.Second
}

// TriggerBudget is the per-minute cap on reconciliation passes, shared
// by the timer and remote-update triggers.
func (c *Config) TriggerBudget() int {
	if c.Board.TriggersPerMinute <= 0 {
		return 30
	}
	return c.Board.TriggersPerMinute
}
