package generateflashcards

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

	MinValidItems   int     `mapstructure:"min_valid_items"`
	MaxCards        int     `mapstructure:"max_cards"`
	MaterialChars   int     `mapstructure:"material_chars"`
	RepairJSON      bool    `mapstructure:"repair_json"`
	DiagnosticChars int     `mapstructure:"diagnostic_chars"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		MaxJobsActive:   5,
		Timeout:         180 * time.Second,
		MinValidItems:   1,
		MaxCards:        50,
		MaterialChars:   2000,
		DiagnosticChars: llmjson.DefaultDiagnosticChars,
		Temperature:     0.7,
		MaxTokens:       4000,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.MinValidItems < 1 {
		return fmt.Errorf("min_valid_items must be at least 1")
	}
	if c.MaxCards < 1 {
		return fmt.Errorf("max_cards must be at least 1")
	}
	return nil
}

func (c *Config) decodeOptions() []llmjson.Option {
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
	if n := appConfig.MinItemsFor(TaskType); n > 0 {
		cfg.MinValidItems = n
	}
	if appConfig.Generation.MaterialChars > 0 {
		cfg.MaterialChars = appConfig.Generation.MaterialChars
	}
	if appConfig.Generation.DiagnosticChars > 0 {
		cfg.DiagnosticChars = appConfig.Generation.DiagnosticChars
	}
	cfg.RepairJSON = appConfig.Generation.RepairJSON
	return cfg
}
