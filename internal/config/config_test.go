package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohankatakam/ownerscope/internal/errors"
)

func TestDefault(t *testing.T) {
	t.Setenv("OWNERSCOPE_HOME", "/tmp/osc")
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, "/tmp/osc/history.db", cfg.Storage.HistoryPath)
	assert.Equal(t, "/tmp/osc/models.db", cfg.Storage.ModelPath)
	assert.Equal(t, 20, cfg.Training.MinSamples)
	assert.Equal(t, 3, cfg.Training.MinPositive)
	assert.Equal(t, 3, cfg.Training.MinNegative)
	assert.Equal(t, 2, cfg.Training.MinTeamMembers)
	assert.Equal(t, int64(42), cfg.Training.Seed)
	assert.Equal(t, 5, cfg.Prediction.TopK)
	assert.Equal(t, 3, cfg.GitHub.EmptyPageLimit)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OWNERSCOPE_HOME", dir)
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("OWNERSCOPE_PREDICTION_TOP_K", "9")

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  type: postgres
training:
  min_samples: 30
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Type)
	assert.Equal(t, 30, cfg.Training.MinSamples)
	// untouched keys in a section keep their defaults
	assert.Equal(t, 3, cfg.Training.MinPositive)
	assert.Equal(t, filepath.Join(dir, "models.db"), cfg.Storage.ModelPath)
	assert.Equal(t, "ghp_test", cfg.GitHub.Token)
	assert.Equal(t, 9, cfg.Prediction.TopK)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestSaveRoundTripOmitsToken(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("OWNERSCOPE_HOME", dir)
	t.Setenv("GITHUB_TOKEN", "")

	cfg := Default()
	cfg.GitHub.Token = "secret"
	cfg.Prediction.TopK = 7
	path := filepath.Join(dir, "out", "config.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.Prediction.TopK)
	assert.Empty(t, loaded.GitHub.Token)
}

func TestValidate(t *testing.T) {
	t.Setenv("OWNERSCOPE_HOME", t.TempDir())

	tests := []struct {
		name    string
		mutate  func(*Config)
		ctx     ValidationContext
		wantErr bool
	}{
		{"defaults train", func(c *Config) {}, ValidationContextTrain, false},
		{"defaults predict", func(c *Config) {}, ValidationContextPredict, false},
		{"collect without token", func(c *Config) {}, ValidationContextCollect, true},
		{"collect with token", func(c *Config) { c.GitHub.Token = "x" }, ValidationContextCollect, false},
		{"postgres without dsn", func(c *Config) { c.Storage.Type = "postgres" }, ValidationContextTrain, true},
		{"unknown backend", func(c *Config) { c.Storage.Type = "mongo" }, ValidationContextTrain, true},
		{"bad test fraction", func(c *Config) { c.Training.TestFraction = 1 }, ValidationContextTrain, true},
		{"zero top k", func(c *Config) { c.Prediction.TopK = 0 }, ValidationContextPredict, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			result := cfg.Validate(tt.ctx)
			assert.Equal(t, tt.wantErr, result.HasErrors(), result.Error())
			if tt.wantErr {
				assert.True(t, errors.IsType(result.Err(), errors.ErrorTypeConfig))
			} else {
				assert.NoError(t, result.Err())
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, "", expandPath(""))
	assert.Equal(t, "/abs/x.db", expandPath("/abs/x.db"))
	assert.Equal(t, filepath.Join(home, "x.db"), expandPath("~/x.db"))
	assert.Equal(t, filepath.Join(home, "logs")+"/", expandPath("~/logs/"))
}
