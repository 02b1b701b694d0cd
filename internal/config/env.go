package config

import "strings"

// envKeyReplacer maps nested keys to environment names: training.min_samples -> TRAINING_MIN_SAMPLES
var envKeyReplacer = strings.NewReplacer(".", "_")

// EnvVars lists the environment variables that override configuration
func EnvVars() []string {
	return []string{
		"GITHUB_TOKEN",
		"GITHUB_RATE_LIMIT",
		"POSTGRES_DSN",
		"OWNERSCOPE_HOME",
		"OWNERSCOPE_STORAGE_TYPE",
		"OWNERSCOPE_OWNERSHIP_FILE",
		"OWNERSCOPE_PREDICTION_TOP_K",
		"OWNERSCOPE_TRAINING_MIN_SAMPLES",
		"OWNERSCOPE_LOGGING_LEVEL",
		"OWNERSCOPE_METRICS_TEXTFILE",
	}
}
