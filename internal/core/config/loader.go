package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	reg := &cfg.Registration
	if reg.ScanInterval == 0 {
		reg.ScanInterval = 5 * time.Minute
	}
	if reg.MaxConcurrent == 0 {
		reg.MaxConcurrent = 2
	}
	if reg.NavTimeout == 0 {
		reg.NavTimeout = 20 * time.Second
	}
	if reg.StepTimeout == 0 {
		reg.StepTimeout = 8 * time.Second
	}
	if reg.FailureCooldown == 0 {
		reg.FailureCooldown = 30 * time.Minute
	}
	if reg.FailureRetention == 0 {
		reg.FailureRetention = 24 * time.Hour
	}
}
