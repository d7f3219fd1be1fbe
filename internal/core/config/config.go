package config

import (
	"time"

	"github.com/nminhdao/registrar/internal/core/domain"
	browser "github.com/nminhdao/registrar/internal/infra/browser"
	redisclient "github.com/nminhdao/registrar/internal/infra/redis"
	"github.com/nminhdao/registrar/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server       ServerConfig       `yaml:"server"`
	Database     postgres.Config    `yaml:"database"`
	Redis        redisclient.Config `yaml:"redis"`
	Logging      LoggingConfig      `yaml:"logging"`
	Browser      browser.Config     `yaml:"browser"`
	Registration RegistrationConfig `yaml:"registration"`
	Family       FamilyConfig       `yaml:"family"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// RegistrationConfig holds settings for the registration scheduler and the
// retry engine.
type RegistrationConfig struct {
	ScanInterval     time.Duration `yaml:"scan_interval"`
	MaxConcurrent    int           `yaml:"max_concurrent"`
	NavTimeout       time.Duration `yaml:"nav_timeout"`
	StepTimeout      time.Duration `yaml:"step_timeout"`
	FailureCooldown  time.Duration `yaml:"failure_cooldown"`
	FailureRetention time.Duration `yaml:"failure_retention"`
	Jitter           *bool         `yaml:"jitter"`
}

// JitterEnabled reports the jitter setting, defaulting to on.
func (c RegistrationConfig) JitterEnabled() bool {
	if c.Jitter == nil {
		return true
	}
	return *c.Jitter
}

// FamilyConfig holds the household details strategies enter on registration
// forms. Payment details are deliberately absent and must never be added.
type FamilyConfig struct {
	ParentName string        `yaml:"parent_name"`
	Email      string        `yaml:"email"`
	Phone      string        `yaml:"phone"`
	Children   []ChildConfig `yaml:"children"`
}

// ChildConfig holds one child's registration details.
type ChildConfig struct {
	Name      string `yaml:"name"`
	BirthYear int    `yaml:"birth_year"`
}

// Profile converts the family configuration to the domain profile used by
// strategies.
func (c FamilyConfig) Profile() *domain.FamilyProfile {
	profile := &domain.FamilyProfile{
		ParentName: c.ParentName,
		Email:      c.Email,
		Phone:      c.Phone,
	}
	for _, child := range c.Children {
		profile.Children = append(profile.Children, domain.Child{
			Name:      child.Name,
			BirthYear: child.BirthYear,
		})
	}
	return profile
}
