package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	GitHub     GitHubConfig     `yaml:"github" mapstructure:"github"`
	Ownership  OwnershipConfig  `yaml:"ownership" mapstructure:"ownership"`
	Training   TrainingConfig   `yaml:"training" mapstructure:"training"`
	Prediction PredictionConfig `yaml:"prediction" mapstructure:"prediction"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics" mapstructure:"metrics"`
}

type StorageConfig struct {
	Type        string `yaml:"type" mapstructure:"type"` // "sqlite", "postgres"
	HistoryPath string `yaml:"history_path" mapstructure:"history_path"`
	PostgresDSN string `yaml:"postgres_dsn" mapstructure:"postgres_dsn"`
	ModelPath   string `yaml:"model_path" mapstructure:"model_path"`
}

type GitHubConfig struct {
	Token          string  `yaml:"token" mapstructure:"token"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // Requests per second
	PerPage        int     `yaml:"per_page" mapstructure:"per_page"`
	MaxPages       int     `yaml:"max_pages" mapstructure:"max_pages"`
	MaxRecords     int     `yaml:"max_records" mapstructure:"max_records"`
	EmptyPageLimit int     `yaml:"empty_page_limit" mapstructure:"empty_page_limit"`
	RetryAttempts  uint    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

type OwnershipConfig struct {
	File            string   `yaml:"file" mapstructure:"file"`                         // local ownership file
	RepositoryPaths []string `yaml:"repository_paths" mapstructure:"repository_paths"` // tried in order upstream
}

type TrainingConfig struct {
	MinSamples     int     `yaml:"min_samples" mapstructure:"min_samples"`
	MinPositive    int     `yaml:"min_positive" mapstructure:"min_positive"`
	MinNegative    int     `yaml:"min_negative" mapstructure:"min_negative"`
	MinTeamMembers int     `yaml:"min_team_members" mapstructure:"min_team_members"`
	TestFraction   float64 `yaml:"test_fraction" mapstructure:"test_fraction"`
	Seed           int64   `yaml:"seed" mapstructure:"seed"`
	Iterations     int     `yaml:"iterations" mapstructure:"iterations"`
	LearningRate   float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	L2             float64 `yaml:"l2" mapstructure:"l2"`
}

type PredictionConfig struct {
	TopK int `yaml:"top_k" mapstructure:"top_k"`
}

type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	File  string `yaml:"file" mapstructure:"file"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// Home returns the state directory, OWNERSCOPE_HOME or ~/.ownerscope
func Home() string {
	if home := os.Getenv("OWNERSCOPE_HOME"); home != "" {
		return expandPath(home)
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".ownerscope")
}

// Default returns default configuration
func Default() *Config {
	home := Home()
	return &Config{
		Storage: StorageConfig{
			Type:        "sqlite",
			HistoryPath: filepath.Join(home, "history.db"),
			ModelPath:   filepath.Join(home, "models.db"),
		},
		GitHub: GitHubConfig{
			RateLimit:      1,
			PerPage:        100,
			MaxPages:       15,
			MaxRecords:     1000,
			EmptyPageLimit: 3,
			RetryAttempts:  3,
		},
		Ownership: OwnershipConfig{
			RepositoryPaths: []string{".github/CODEOWNERS", "CODEOWNERS", "docs/CODEOWNERS"},
		},
		Training: TrainingConfig{
			MinSamples:     20,
			MinPositive:    3,
			MinNegative:    3,
			MinTeamMembers: 2,
			TestFraction:   0.2,
			Seed:           42,
			Iterations:     500,
			LearningRate:   0.1,
			L2:             0.01,
		},
		Prediction: PredictionConfig{
			TopK: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// setDefaults registers every leaf key so env and file values merge per field
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.history_path", cfg.Storage.HistoryPath)
	v.SetDefault("storage.postgres_dsn", cfg.Storage.PostgresDSN)
	v.SetDefault("storage.model_path", cfg.Storage.ModelPath)

	v.SetDefault("github.token", cfg.GitHub.Token)
	v.SetDefault("github.rate_limit", cfg.GitHub.RateLimit)
	v.SetDefault("github.per_page", cfg.GitHub.PerPage)
	v.SetDefault("github.max_pages", cfg.GitHub.MaxPages)
	v.SetDefault("github.max_records", cfg.GitHub.MaxRecords)
	v.SetDefault("github.empty_page_limit", cfg.GitHub.EmptyPageLimit)
	v.SetDefault("github.retry_attempts", cfg.GitHub.RetryAttempts)

	v.SetDefault("ownership.file", cfg.Ownership.File)
	v.SetDefault("ownership.repository_paths", cfg.Ownership.RepositoryPaths)

	v.SetDefault("training.min_samples", cfg.Training.MinSamples)
	v.SetDefault("training.min_positive", cfg.Training.MinPositive)
	v.SetDefault("training.min_negative", cfg.Training.MinNegative)
	v.SetDefault("training.min_team_members", cfg.Training.MinTeamMembers)
	v.SetDefault("training.test_fraction", cfg.Training.TestFraction)
	v.SetDefault("training.seed", cfg.Training.Seed)
	v.SetDefault("training.iterations", cfg.Training.Iterations)
	v.SetDefault("training.learning_rate", cfg.Training.LearningRate)
	v.SetDefault("training.l2", cfg.Training.L2)

	v.SetDefault("prediction.top_k", cfg.Prediction.TopK)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.json", cfg.Logging.JSON)

	v.SetDefault("metrics.textfile", cfg.Metrics.Textfile)
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	// Load .env files first (in order of precedence)
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	setDefaults(v, cfg)

	// OWNERSCOPE_TRAINING_MIN_SAMPLES and friends
	v.SetEnvPrefix("OWNERSCOPE")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		// Search for config in standard locations
		v.SetConfigName("config")
		v.AddConfigPath(".ownerscope")
		v.AddConfigPath(".")
		v.AddConfigPath(Home())
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence. godotenv never
// overrides variables that are already set, so earlier files win.
func loadEnvFiles() {
	envFiles := []string{
		".env.local",
		".env",
		filepath.Join(Home(), ".env"),
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies the unprefixed, conventional environment variables
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if rateLimit := os.Getenv("GITHUB_RATE_LIMIT"); rateLimit != "" {
		if rate, err := strconv.ParseFloat(rateLimit, 64); err == nil {
			cfg.GitHub.RateLimit = rate
		}
	}

	if storageType := os.Getenv("OWNERSCOPE_STORAGE_TYPE"); storageType != "" {
		cfg.Storage.Type = storageType
	}
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}

	cfg.Storage.HistoryPath = expandPath(cfg.Storage.HistoryPath)
	cfg.Storage.ModelPath = expandPath(cfg.Storage.ModelPath)
	cfg.Ownership.File = expandPath(cfg.Ownership.File)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	cfg.Metrics.Textfile = expandPath(cfg.Metrics.Textfile)
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		expanded := filepath.Join(homeDir, path[1:])
		// a trailing slash marks a directory, e.g. logging.file: ~/logs/
		if strings.HasSuffix(path, "/") {
			expanded += "/"
		}
		return expanded
	}
	return path
}

// Save saves configuration to file. The GitHub token is never written.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	redacted := *c
	redacted.GitHub.Token = ""
	setDefaults(v, &redacted)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
