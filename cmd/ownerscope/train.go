package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rohankatakam/ownerscope/internal/codeowners"
	"github.com/rohankatakam/ownerscope/internal/config"
	"github.com/rohankatakam/ownerscope/internal/errors"
	"github.com/rohankatakam/ownerscope/internal/github"
	"github.com/rohankatakam/ownerscope/internal/logging"
	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/storage"
	"github.com/rohankatakam/ownerscope/internal/training"
)

var (
	trainRepo      string
	trainOwnership string
	trainHistory   string
	trainSkipFetch bool
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Collect new merged pull requests and retrain affected models",
	Long: `Train fetches merged pull requests not yet in the history store (when --repo
is given), imports records from --history, then retrains every ownership group
and team touched by records the previous run had not processed.

A run with no new records changes nothing.

Examples:
  # Collect from GitHub and train
  ownerscope train --repo acme/widgets

  # Train offline from an exported history and a local ownership file
  ownerscope train --history prs.json --ownership .github/CODEOWNERS`,
	Args: cobra.NoArgs,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainRepo, "repo", "", "GitHub repository (owner/name) to collect from")
	trainCmd.Flags().StringVar(&trainOwnership, "ownership", "", "local ownership file (overrides the repository's CODEOWNERS)")
	trainCmd.Flags().StringVar(&trainHistory, "history", "", "JSON file of change records to import before training")
	trainCmd.Flags().BoolVar(&trainSkipFetch, "skip-fetch", false, "train on stored history without contacting GitHub")
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := logging.Component("train")

	if err := validate(config.ValidationContextTrain); err != nil {
		return err
	}
	collecting := trainRepo != "" && !trainSkipFetch
	if collecting {
		if err := validate(config.ValidationContextCollect); err != nil {
			return err
		}
	}

	history, err := openHistory()
	if err != nil {
		return err
	}
	defer history.Close()

	if trainHistory != "" {
		n, err := importFile(ctx, history, trainHistory)
		if err != nil {
			return err
		}
		log.Info("imported history", "file", trainHistory, "new", n)
	}

	var rules []codeowners.Rule
	if trainOwnership != "" || cfg.Ownership.File != "" {
		if rules, err = rulesFor(ctx, trainOwnership); err != nil {
			return err
		}
	}

	if trainRepo != "" {
		client := github.NewClient(cfg.GitHub.Token, cfg.GitHub.RateLimit, cfg.GitHub.RetryAttempts)
		collector, err := github.NewCollector(client, trainRepo, github.CollectorConfig{
			PerPage:        cfg.GitHub.PerPage,
			MaxPages:       cfg.GitHub.MaxPages,
			MaxRecords:     cfg.GitHub.MaxRecords,
			EmptyPageLimit: cfg.GitHub.EmptyPageLimit,
			OwnershipPaths: cfg.Ownership.RepositoryPaths,
		}, metric)
		if err != nil {
			return err
		}

		if rules == nil {
			var path string
			if rules, path, err = collector.FetchOwnership(ctx); err != nil {
				return err
			}
			log.Info("using repository ownership file", "path", path, "rules", len(rules))
		}

		if collecting {
			if err := collect(ctx, collector, history); err != nil {
				return err
			}
		}
	}

	if rules == nil {
		if rules, err = rulesFor(ctx, ""); err != nil {
			return err
		}
	}

	records, err := history.ListRecords(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return errors.New(errors.ErrorTypeInsufficientData, errors.SeverityMedium,
			"history is empty: pass --repo or --history to add merged pull requests")
	}

	modelStore, err := openModels()
	if err != nil {
		return err
	}
	defer modelStore.Close()

	orch := training.NewOrchestrator(orchestratorConfig(), newTrainer(), modelStore, training.WithMetrics(metric))
	_, summary, err := orch.Run(ctx, rules, records)
	writeMetrics()
	if err != nil {
		return err
	}
	return printer.RunSummary(summary)
}

// collect stores each fetched page before the next is requested, so an
// upstream failure keeps everything fetched so far.
func collect(ctx context.Context, collector *github.Collector, history storage.HistoryStore) error {
	known, err := history.KnownIDs(ctx)
	if err != nil {
		return err
	}

	res, err := collector.Collect(ctx, known, func(ctx context.Context, page int, recs []*models.ChangeRecord) error {
		_, err := history.SaveRecords(ctx, recs)
		return err
	})
	if err != nil {
		if res != nil && res.Records > 0 {
			logger.WithField("records", res.Records).Warn("Collection interrupted; fetched pages were stored")
		}
		return err
	}

	logger.WithFields(logrus.Fields{
		"repo":    collector.Repo(),
		"pages":   res.Pages,
		"records": res.Records,
		"reason":  res.StopReason,
	}).Info("Collection finished")
	return nil
}

// importFile loads a JSON array of change records into the history store
func importFile(ctx context.Context, history storage.HistoryStore, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.ValidationErrorf("failed to read %s: %v", path, err)
	}

	var records []*models.ChangeRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return 0, errors.ValidationErrorf("failed to parse %s: %v", path, err)
	}
	for i, r := range records {
		if r == nil || r.ID == 0 {
			return 0, errors.ValidationErrorf("%s: record %d has no id", path, i)
		}
		r.Normalize()
	}

	return history.SaveRecords(ctx, records)
}
