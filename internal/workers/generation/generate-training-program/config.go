package generatetrainingprogram

import (
	"fmt"
	"time"

	"edu-content-workers/internal/common/config"
	"edu-content-workers/internal/common/llmjson"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`

	DefaultLevel    string  `mapstructure:"default_level"`
	DefaultDuration string  `mapstructure:"default_duration"`
	RepairJSON      bool    `mapstructure:"repair_json"`
	DiagnosticChars int     `mapstructure:"diagnostic_chars"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		MaxJobsActive:   5,
		Timeout:         120 * time.Second,
		DefaultLevel:    "beginner",
		DefaultDuration: "1 month",
		DiagnosticChars: llmjson.DefaultDiagnosticChars,
		Temperature:     0.4,
		MaxTokens:       2000,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.DefaultLevel == "" || c.DefaultDuration == "" {
		return fmt.Errorf("default_level and default_duration are required")
	}
	return nil
}

func (c *Config) extractOptions() []llmjson.Option {
	opts := []llmjson.Option{llmjson.WithDiagnosticChars(c.DiagnosticChars)}
	if c.RepairJSON {
		opts = append(opts, llmjson.WithRepair())
	}
	return opts
}

func createConfigFromAppConfig(appConfig *config.Config, custom *Config) *Config {
	if custom != nil {
		return custom
	}

	cfg := DefaultConfig()
	if appConfig == nil {
		return cfg
	}

	wcfg := config.GetWorkerConfig(appConfig, TaskType)
	cfg.Enabled = wcfg.Enabled
	if wcfg.MaxJobsActive > 0 {
		cfg.MaxJobsActive = wcfg.MaxJobsActive
	}
	if wcfg.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wcfg.Timeout)
	}
	if appConfig.Generation.DiagnosticChars > 0 {
		cfg.DiagnosticChars = appConfig.Generation.DiagnosticChars
	}
	cfg.RepairJSON = appConfig.Generation.RepairJSON
	return cfg
}
