// Package training runs incremental, idempotent training of one classifier
// per ownership group and per discovered team.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rohankatakam/ownerscope/internal/classifier"
	"github.com/rohankatakam/ownerscope/internal/codeowners"
	ownerrors "github.com/rohankatakam/ownerscope/internal/errors"
	"github.com/rohankatakam/ownerscope/internal/features"
	"github.com/rohankatakam/ownerscope/internal/metrics"
	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/stats"
)

// Skip reasons reported in outcomes and metrics
const (
	ReasonInsufficientData = "insufficient_data"
	ReasonNoOwners         = "no_individual_owners"
	ReasonFewMembers       = "too_few_members"
	ReasonFitFailed        = "fit_failed"
)

// Config holds the training thresholds
type Config struct {
	MinSamples     int
	MinPositive    int
	MinNegative    int
	MinTeamMembers int
	TestFraction   float64
	Seed           int64
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		MinSamples:     20,
		MinPositive:    3,
		MinNegative:    3,
		MinTeamMembers: 2,
		TestFraction:   0.2,
		Seed:           42,
	}
}

// Orchestrator drives a training run from ledger load to commit.
type Orchestrator struct {
	cfg      Config
	trainer  classifier.Trainer
	engineer *features.Engineer
	store    StateStore
	metrics  *metrics.Manager
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithMetrics records run metrics on m
func WithMetrics(m *metrics.Manager) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// NewOrchestrator creates an orchestrator
func NewOrchestrator(cfg Config, trainer classifier.Trainer, store StateStore, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		trainer:  trainer,
		engineer: features.NewEngineer(),
		store:    store,
		logger:   slog.Default().With("component", "training_orchestrator"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// dataset is the labelled matrix for one target
type dataset struct {
	X        [][]float64
	y        []int
	positive int
	negative int
}

// Run trains every group and team touched by records not yet in the ledger,
// using the full history for samples and stats, then commits the ledger and
// models together. A run with no new records is a no-op and writes nothing.
func (o *Orchestrator) Run(ctx context.Context, rules []codeowners.Rule, history []*models.ChangeRecord) (*State, *models.RunSummary, error) {
	start := o.now()

	if len(rules) == 0 {
		o.metrics.RecordRun(metrics.ResultFailed, 0, time.Since(start))
		return nil, nil, ownerrors.ConfigError("no ownership rules to train against")
	}

	prev, err := o.store.Load(ctx)
	if err != nil {
		o.metrics.RecordRun(metrics.ResultFailed, 0, time.Since(start))
		return nil, nil, ownerrors.PersistenceError(err, "load training state")
	}

	summary := &models.RunSummary{
		ID:           uuid.New().String(),
		StartedAt:    start,
		TotalRecords: len(history),
		Rules:        len(rules),
		NewRecordIDs: []int64{},
	}

	var fresh []*models.ChangeRecord
	for _, rec := range history {
		rec.Normalize()
		if !prev.ProcessedIDs[rec.ID] {
			fresh = append(fresh, rec)
			summary.NewRecordIDs = append(summary.NewRecordIDs, rec.ID)
		}
	}

	if len(fresh) == 0 {
		summary.NoOp = true
		summary.Message = "no new records"
		summary.FinishedAt = o.now()
		o.logger.Info("training skipped, no new records", "processed", len(prev.ProcessedIDs))
		o.metrics.RecordRun(metrics.ResultNoOp, 0, time.Since(start))
		return prev, summary, nil
	}

	resolver := codeowners.NewResolver(rules)
	idx := stats.NewIndex(history, resolver)
	next := prev.Clone()

	rulesChanged := len(prev.Rules) > 0 && !codeowners.Equal(prev.Rules, rules)
	summary.RulesChanged = rulesChanged

	groups, teams := o.affected(idx, fresh, resolver, rulesChanged)
	if rulesChanged {
		o.prune(next, idx)
	}

	o.logger.Info("training run started",
		"run_id", summary.ID,
		"new_records", len(fresh),
		"total_records", len(history),
		"affected_groups", len(groups),
		"affected_teams", len(teams),
		"rules_changed", rulesChanged)

	for _, id := range groups {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		target := stats.GroupTarget(id)
		owners := codeowners.Group{Owners: codeowners.GroupOwners(id)}.Individuals()
		if len(owners) == 0 {
			o.skip(summary, target, ReasonNoOwners, "group has only team owners", dataset{})
			continue
		}
		if m := o.trainTarget(summary, idx, target, owners); m != nil {
			next.Groups[id] = m
			delete(next.Fallbacks, id)
			summary.TrainedGroups++
		} else {
			next.Fallbacks[id] = &GroupFallback{
				Group:     id,
				Owners:    owners,
				Stats:     idx.Snapshot(target, owners),
				Reason:    lastReason(summary, id),
				UpdatedAt: o.now(),
			}
		}
	}

	for _, team := range teams {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		target := stats.TeamTarget(team)
		members := idx.TeamMembers(team)
		if len(members) < o.cfg.MinTeamMembers {
			o.skip(summary, target, ReasonFewMembers,
				fmt.Sprintf("%d discovered members, need %d", len(members), o.cfg.MinTeamMembers), dataset{})
			continue
		}
		if m := o.trainTarget(summary, idx, target, members); m != nil {
			next.Teams[team] = m
			summary.TrainedTeams++
		}
	}

	for _, rec := range fresh {
		next.ProcessedIDs[rec.ID] = true
	}
	next.Rules = rules
	next.Trained = next.HasModels()
	next.LastTrained = o.now()

	summary.FinishedAt = next.LastTrained
	summary.Message = fmt.Sprintf("trained %d groups and %d teams, skipped %d",
		summary.TrainedGroups, summary.TrainedTeams, summary.SkippedTargets)
	next.appendRun(*summary)

	if err := o.store.Commit(ctx, next); err != nil {
		o.metrics.RecordRun(metrics.ResultFailed, summary.TotalSamples, time.Since(start))
		return nil, nil, ownerrors.PersistenceError(err, "commit training state")
	}

	o.metrics.RecordRun(metrics.ResultTrained, summary.TotalSamples, time.Since(start))
	o.logger.Info("training run committed",
		"run_id", summary.ID,
		"trained_groups", summary.TrainedGroups,
		"trained_teams", summary.TrainedTeams,
		"skipped", summary.SkippedTargets,
		"duration", time.Since(start))

	return next, summary, nil
}

// affected returns the groups and teams to retrain, sorted. New records
// define the set unless the rules changed, in which case everything in
// history is retrained.
func (o *Orchestrator) affected(idx *stats.Index, fresh []*models.ChangeRecord, resolver *codeowners.Resolver, rulesChanged bool) ([]string, []string) {
	if rulesChanged {
		return idx.Groups(), idx.Teams(1)
	}

	groups := make(map[string]bool)
	teams := make(map[string]bool)
	for _, rec := range fresh {
		res := stats.ResolveRecord(rec, resolver)
		for _, g := range res.Groups {
			groups[g.ID] = true
		}
		for _, t := range res.Teams {
			teams[t] = true
		}
	}
	return sortedSet(groups), sortedSet(teams)
}

// prune drops models and fallbacks whose group or team no longer appears under the current rules.
func (o *Orchestrator) prune(s *State, idx *stats.Index) {
	live := make(map[string]bool)
	for _, id := range idx.Groups() {
		live[id] = true
	}
	for id := range s.Groups {
		if !live[id] {
			o.logger.Info("dropping model for removed group", "group", id)
			delete(s.Groups, id)
		}
	}

	for id := range s.Fallbacks {
		if !live[id] {
			delete(s.Fallbacks, id)
		}
	}

	liveTeams := make(map[string]bool)
	for _, t := range idx.Teams(1) {
		liveTeams[t] = true
	}
	for t := range s.Teams {
		if !liveTeams[t] {
			o.logger.Info("dropping model for removed team", "team", t)
			delete(s.Teams, t)
		}
	}
}

// buildDataset emits one sample per candidate per historical record touching
// target: positive when the candidate approved, negative otherwise.
func (o *Orchestrator) buildDataset(idx *stats.Index, target stats.Target, candidates []string) dataset {
	var ds dataset
	for _, rec := range idx.Records() {
		if !rec.Touches(target) {
			continue
		}
		for _, dev := range candidates {
			ds.X = append(ds.X, o.engineer.ForTraining(idx, target, rec, dev))
			if rec.Record.Approved(dev) {
				ds.y = append(ds.y, 1)
				ds.positive++
			} else {
				ds.y = append(ds.y, 0)
				ds.negative++
			}
		}
	}
	return ds
}

func (o *Orchestrator) trainTarget(summary *models.RunSummary, idx *stats.Index, target stats.Target, candidates []string) *TrainedModel {
	ds := o.buildDataset(idx, target, candidates)

	if len(ds.y) < o.cfg.MinSamples || ds.positive < o.cfg.MinPositive || ds.negative < o.cfg.MinNegative {
		err := ownerrors.InsufficientData(target.String(), len(ds.y), ds.positive, ds.negative)
		o.skip(summary, target, ReasonInsufficientData, err.Message, ds)
		return nil
	}

	model, err := o.fit(target, ds, candidates, idx)
	if err != nil {
		o.skip(summary, target, ReasonFitFailed, err.Error(), ds)
		return nil
	}

	summary.TotalSamples += len(ds.y)
	summary.Outcomes = append(summary.Outcomes, models.TargetOutcome{
		Target:        target.ID,
		Family:        target.Family,
		Status:        models.StatusTrained,
		Samples:       len(ds.y),
		Positive:      ds.positive,
		Negative:      ds.negative,
		TrainAccuracy: model.TrainAccuracy,
		TestAccuracy:  model.TestAccuracy,
	})
	o.metrics.RecordTarget(string(target.Family), "")
	o.logger.Info("trained model",
		"target", target.String(),
		"samples", len(ds.y),
		"positive", ds.positive,
		"negative", ds.negative,
		"test_accuracy", model.TestAccuracy)

	return model
}

func (o *Orchestrator) fit(target stats.Target, ds dataset, candidates []string, idx *stats.Index) (*TrainedModel, error) {
	trainIdx, testIdx := classifier.Split(ds.y, o.cfg.TestFraction, o.cfg.Seed)
	Xtr, ytr := classifier.Subset(ds.X, ds.y, trainIdx)
	Xte, yte := classifier.Subset(ds.X, ds.y, testIdx)

	// a hold-out that empties a class leaves nothing to fit; train on everything instead
	if !hasBothClasses(ytr) {
		Xtr, ytr = ds.X, ds.y
		Xte, yte = nil, nil
	}

	scaler := classifier.FitScaler(Xtr)
	Xtr = scaler.TransformAll(Xtr)

	clf, err := o.trainer.Fit(Xtr, ytr)
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", target, err)
	}
	params, err := classifier.Encode(clf)
	if err != nil {
		return nil, err
	}

	m := &TrainedModel{
		Target:        target.ID,
		Family:        target.Family,
		Classifier:    o.trainer.Name(),
		Params:        params,
		FeatureNames:  features.Schema(),
		Scaler:        scaler,
		Stats:         idx.Snapshot(target, candidates),
		Candidates:    candidates,
		Samples:       len(ds.y),
		Positive:      ds.positive,
		Negative:      ds.negative,
		TrainAccuracy: classifier.Accuracy(clf, Xtr, ytr),
		TrainedAt:     o.now(),
	}
	if len(Xte) > 0 {
		m.TestAccuracy = classifier.Accuracy(clf, scaler.TransformAll(Xte), yte)
	}
	return m, nil
}

func (o *Orchestrator) skip(summary *models.RunSummary, target stats.Target, reason, detail string, ds dataset) {
	summary.SkippedTargets++
	summary.Outcomes = append(summary.Outcomes, models.TargetOutcome{
		Target:   target.ID,
		Family:   target.Family,
		Status:   models.StatusSkipped,
		Reason:   detail,
		Samples:  len(ds.y),
		Positive: ds.positive,
		Negative: ds.negative,
	})
	o.metrics.RecordTarget(string(target.Family), reason)
	o.logger.Info("skipped target", "target", target.String(), "reason", reason, "detail", detail)
}

// lastReason returns the detail of the latest outcome recorded for target
func lastReason(summary *models.RunSummary, target string) string {
	for i := len(summary.Outcomes) - 1; i >= 0; i-- {
		if summary.Outcomes[i].Target == target {
			return summary.Outcomes[i].Reason
		}
	}
	return ""
}

func hasBothClasses(y []int) bool {
	var pos, neg bool
	for _, v := range y {
		if v == 1 {
			pos = true
		} else {
			neg = true
		}
	}
	return pos && neg
}

func sortedSet(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
