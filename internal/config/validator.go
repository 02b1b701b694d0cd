package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/rohankatakam/ownerscope/internal/errors"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextCollect - fetching history from GitHub needs a token
	ValidationContextCollect ValidationContext = "collect"
	// ValidationContextTrain - training needs an ownership source and both stores
	ValidationContextTrain ValidationContext = "train"
	// ValidationContextPredict - prediction needs the model store
	ValidationContextPredict ValidationContext = "predict"
	// ValidationContextAll - validate all configuration
	ValidationContextAll ValidationContext = "all"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  ❌ %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nWarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  ⚠️  %s\n", warn))
		}
	}

	return sb.String()
}

// Err converts a failed result into a typed configuration error
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigError(strings.Join(vr.Errors, "; "))
}

// Validate validates configuration for the given context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextCollect:
		c.validateGitHub(result, true)
		c.validateStorage(result)
	case ValidationContextTrain:
		c.validateStorage(result)
		c.validateTraining(result)
	case ValidationContextPredict:
		c.validateModelStore(result)
		c.validatePrediction(result)
	case ValidationContextAll:
		c.validateGitHub(result, false)
		c.validateStorage(result)
		c.validateTraining(result)
		c.validatePrediction(result)
	}

	return result
}

func (c *Config) validateGitHub(result *ValidationResult, required bool) {
	if c.GitHub.Token == "" {
		if required {
			result.AddError("GITHUB_TOKEN is required to collect pull requests")
		} else {
			result.AddWarning("GITHUB_TOKEN not set: only offline import is available")
		}
	}
	if c.GitHub.RateLimit <= 0 {
		result.AddError("github.rate_limit must be positive, got %v", c.GitHub.RateLimit)
	}
	if c.GitHub.PerPage < 1 || c.GitHub.PerPage > 100 {
		result.AddError("github.per_page must be between 1 and 100, got %d", c.GitHub.PerPage)
	}
	if c.GitHub.EmptyPageLimit < 1 {
		result.AddError("github.empty_page_limit must be at least 1, got %d", c.GitHub.EmptyPageLimit)
	}
}

func (c *Config) validateStorage(result *ValidationResult) {
	switch c.Storage.Type {
	case "sqlite":
		if c.Storage.HistoryPath == "" {
			result.AddError("storage.history_path is required for sqlite storage")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			result.AddError("POSTGRES_DSN is required for postgres storage")
		} else if u, err := url.Parse(c.Storage.PostgresDSN); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			result.AddWarning("POSTGRES_DSN is not a postgres:// URL; assuming key=value form")
		}
	default:
		result.AddError("storage.type must be sqlite or postgres, got %q", c.Storage.Type)
	}
	c.validateModelStore(result)
}

func (c *Config) validateModelStore(result *ValidationResult) {
	if c.Storage.ModelPath == "" {
		result.AddError("storage.model_path is required")
	}
}

func (c *Config) validateTraining(result *ValidationResult) {
	t := c.Training
	if t.MinSamples < 1 {
		result.AddError("training.min_samples must be at least 1, got %d", t.MinSamples)
	}
	if t.MinPositive < 1 || t.MinNegative < 1 {
		result.AddError("training.min_positive and training.min_negative must be at least 1")
	}
	if t.MinTeamMembers < 1 {
		result.AddError("training.min_team_members must be at least 1, got %d", t.MinTeamMembers)
	}
	if t.TestFraction < 0 || t.TestFraction >= 1 {
		result.AddError("training.test_fraction must be in [0, 1), got %v", t.TestFraction)
	}
	if t.Iterations < 1 || t.LearningRate <= 0 {
		result.AddError("training.iterations and training.learning_rate must be positive")
	}
	if t.L2 < 0 {
		result.AddError("training.l2 must not be negative, got %v", t.L2)
	}
	if c.Ownership.File != "" {
		if _, err := os.Stat(c.Ownership.File); err != nil {
			result.AddWarning("ownership.file %s is not readable: %v", c.Ownership.File, err)
		}
	}
}

func (c *Config) validatePrediction(result *ValidationResult) {
	if c.Prediction.TopK < 1 {
		result.AddError("prediction.top_k must be at least 1, got %d", c.Prediction.TopK)
	}
}
