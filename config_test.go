package sentiment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "data/reviews.db", cfg.Database.Path)
	require.Equal(t, "ml_models", cfg.Models.Dir)
	require.Equal(t, 50, cfg.Training.MinReviews)
	require.Equal(t, English, cfg.Analysis.DefaultLanguage)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: /var/lib/gencart/reviews.db
models:
  dir: /var/lib/gencart/models
  fallback_dirs:
    - /opt/legacy/models
training:
  min_reviews: 25
  balance_method: oversample
analysis:
  default_language: vi
  batch_size: 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/gencart/reviews.db", cfg.Database.Path)
	require.Equal(t, []string{"/opt/legacy/models"}, cfg.Models.FallbackDirs)
	require.Equal(t, 25, cfg.Training.MinReviews)
	require.Equal(t, BalanceOversample, cfg.Training.BalanceMethod)
	require.Equal(t, Vietnamese, cfg.Analysis.DefaultLanguage)
	require.Equal(t, 250, cfg.Analysis.BatchSize)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"oversized test fraction", "training:\n  test_fraction: 1.5\n"},
		{"fractions consume everything", "training:\n  test_fraction: 0.6\n  validation_fraction: 0.5\n"},
		{"unknown balance method", "training:\n  balance_method: smote\n"},
		{"unknown language", "analysis:\n  default_language: fr\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := LoadConfig(path)
			require.Error(t, err)
		})
	}
}
