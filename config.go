package sentiment

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the engine's file configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Models   ModelsConfig   `yaml:"models"`
	Training TrainingConfig `yaml:"training"`
	Analysis AnalysisConfig `yaml:"analysis"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type ModelsConfig struct {
	// Dir is the canonical artifact directory; all writes go here.
	Dir string `yaml:"dir"`
	// FallbackDirs are extra read-only roots searched after Dir, kept for
	// older on-disk layouts.
	FallbackDirs []string `yaml:"fallback_dirs"`
	// TransformerDir, when it exists, enables the transformer classifier.
	TransformerDir string `yaml:"transformer_dir"`
}

type TrainingConfig struct {
	MinReviews         int     `yaml:"min_reviews"`
	TestFraction       float64 `yaml:"test_fraction"`
	ValidationFraction float64 `yaml:"validation_fraction"`
	BalanceMethod      string  `yaml:"balance_method"`
}

type AnalysisConfig struct {
	DefaultLanguage Language `yaml:"default_language"`
	BatchSize       int      `yaml:"batch_size"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{Path: "data/reviews.db"},
		Models:   ModelsConfig{Dir: "ml_models"},
		Training: TrainingConfig{
			MinReviews:         50,
			TestFraction:       0.15,
			ValidationFraction: 0.15,
		},
		Analysis: AnalysisConfig{
			DefaultLanguage: English,
			BatchSize:       defaultBatchSize,
		},
	}
}

// LoadConfig reads a yaml config file, layering it over the defaults. An
// empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path must not be empty")
	}
	if c.Models.Dir == "" {
		return fmt.Errorf("config: models.dir must not be empty")
	}
	if c.Training.TestFraction < 0 || c.Training.TestFraction >= 1 {
		return fmt.Errorf("config: training.test_fraction %v out of range", c.Training.TestFraction)
	}
	if c.Training.ValidationFraction < 0 || c.Training.ValidationFraction >= 1 {
		return fmt.Errorf("config: training.validation_fraction %v out of range", c.Training.ValidationFraction)
	}
	if c.Training.TestFraction+c.Training.ValidationFraction >= 1 {
		return fmt.Errorf("config: training fractions leave no training data")
	}
	switch c.Training.BalanceMethod {
	case "", BalanceOversample, BalanceUndersample, BalanceClassWeights:
	default:
		return fmt.Errorf("config: unknown training.balance_method %q", c.Training.BalanceMethod)
	}
	switch c.Analysis.DefaultLanguage {
	case "", English, Vietnamese:
	default:
		return fmt.Errorf("config: unsupported analysis.default_language %q", c.Analysis.DefaultLanguage)
	}
	return nil
}
