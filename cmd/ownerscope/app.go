package main

import (
	"context"
	"os"

	"github.com/rohankatakam/ownerscope/internal/classifier"
	"github.com/rohankatakam/ownerscope/internal/codeowners"
	"github.com/rohankatakam/ownerscope/internal/config"
	"github.com/rohankatakam/ownerscope/internal/errors"
	"github.com/rohankatakam/ownerscope/internal/logging"
	"github.com/rohankatakam/ownerscope/internal/storage"
	"github.com/rohankatakam/ownerscope/internal/training"
)

func validate(ctx config.ValidationContext) error {
	result := cfg.Validate(ctx)
	for _, w := range result.Warnings {
		logging.Warn(w)
	}
	return result.Err()
}

func openHistory() (storage.HistoryStore, error) {
	return storage.OpenHistory(cfg.Storage.Type, cfg.Storage.HistoryPath, cfg.Storage.PostgresDSN, logger)
}

func openModels() (*storage.ModelStore, error) {
	return storage.NewModelStore(cfg.Storage.ModelPath, logger)
}

// loadState reads the committed ledger and models
func loadState(ctx context.Context) (*training.State, error) {
	store, err := openModels()
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(ctx)
}

func newTrainer() *classifier.LogisticTrainer {
	t := cfg.Training
	return classifier.NewLogisticTrainer(t.Iterations, t.LearningRate, t.L2)
}

func trainers() []classifier.Trainer {
	return []classifier.Trainer{newTrainer()}
}

func orchestratorConfig() training.Config {
	t := cfg.Training
	return training.Config{
		MinSamples:     t.MinSamples,
		MinPositive:    t.MinPositive,
		MinNegative:    t.MinNegative,
		MinTeamMembers: t.MinTeamMembers,
		TestFraction:   t.TestFraction,
		Seed:           t.Seed,
	}
}

// readRules parses an ownership file from disk
func readRules(path string) ([]codeowners.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NoOwnershipSource(path)
		}
		return nil, errors.ConfigErrorf("failed to read ownership file %s: %v", path, err)
	}
	rules := codeowners.Parse(string(data))
	if len(rules) == 0 {
		return nil, errors.ConfigErrorf("ownership file %s contains no rules", path)
	}
	return rules, nil
}

// rulesFor returns rules from an explicit file, the configured file, or the
// rules the current models were trained with, in that order.
func rulesFor(ctx context.Context, path string) ([]codeowners.Rule, error) {
	if path == "" {
		path = cfg.Ownership.File
	}
	if path != "" {
		return readRules(path)
	}
	state, err := loadState(ctx)
	if err != nil {
		return nil, err
	}
	if len(state.Rules) == 0 {
		return nil, errors.NoOwnershipSource("--ownership, ownership.file or trained models")
	}
	return state.Rules, nil
}

func writeMetrics() {
	if cfg.Metrics.Textfile == "" {
		return
	}
	if err := metric.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logging.Warn("failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", err)
	}
}
