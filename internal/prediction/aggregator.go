// Package prediction ranks likely approvers for a change by combining the
// persisted group and team classifiers.
package prediction

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rohankatakam/ownerscope/internal/classifier"
	"github.com/rohankatakam/ownerscope/internal/codeowners"
	ownerrors "github.com/rohankatakam/ownerscope/internal/errors"
	"github.com/rohankatakam/ownerscope/internal/features"
	"github.com/rohankatakam/ownerscope/internal/metrics"
	"github.com/rohankatakam/ownerscope/internal/models"
	"github.com/rohankatakam/ownerscope/internal/training"
)

// Request describes a change to score. Only Files is required; missing
// metadata leaves the matching features at zero.
type Request struct {
	Files     []string  `json:"files"`
	Title     string    `json:"title,omitempty"`
	Additions int       `json:"additions,omitempty"`
	Deletions int       `json:"deletions,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	TopK      int       `json:"top_k,omitempty"`
}

type loadedModel struct {
	meta *training.TrainedModel
	clf  classifier.Model
}

// Aggregator scores candidates against a loaded training state.
type Aggregator struct {
	state    *training.State
	resolver *codeowners.Resolver
	engineer *features.Engineer
	groups   map[string]*loadedModel
	teams    map[string]*loadedModel
	metrics  *metrics.Manager
	logger   *slog.Logger
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithMetrics records served predictions on m
func WithMetrics(m *metrics.Manager) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// NewAggregator decodes every persisted model with the trainer that produced it.
func NewAggregator(state *training.State, trainers []classifier.Trainer, opts ...Option) (*Aggregator, error) {
	byName := make(map[string]classifier.Trainer, len(trainers))
	for _, t := range trainers {
		byName[t.Name()] = t
	}

	a := &Aggregator{
		state:    state,
		resolver: codeowners.NewResolver(state.Rules),
		engineer: features.NewEngineer(),
		groups:   make(map[string]*loadedModel),
		teams:    make(map[string]*loadedModel),
		logger:   slog.Default().With("component", "prediction_aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}

	load := func(dst map[string]*loadedModel, src map[string]*training.TrainedModel) error {
		for id, m := range src {
			if !features.SameSchema(m.FeatureNames) {
				return ownerrors.PredictionInputErrorf("model %s was trained with a different feature schema, retrain required", id)
			}
			t, ok := byName[m.Classifier]
			if !ok {
				return ownerrors.PredictionInputErrorf("no decoder for classifier %q used by %s", m.Classifier, id)
			}
			clf, err := t.Decode(m.Params)
			if err != nil {
				return ownerrors.PersistenceErrorf(err, "decode model %s", id)
			}
			dst[id] = &loadedModel{meta: m, clf: clf}
		}
		return nil
	}
	if err := load(a.groups, state.Groups); err != nil {
		return nil, err
	}
	if err := load(a.teams, state.Teams); err != nil {
		return nil, err
	}

	return a, nil
}

// Predict ranks approvers for files. topK <= 0 returns every candidate.
func (a *Aggregator) Predict(files []string, topK int) ([]models.Prediction, error) {
	return a.PredictChange(Request{Files: files, TopK: topK})
}

type candidate struct {
	score         float64
	contributions []models.Contribution
}

// PredictChange ranks approvers for a change. Each group's owners are scored
// by its group model weighted by the group's share of files; team owners fan
// out to their discovered members through the team model with the same
// weight. A group that never qualified for a model scores its owners by
// historical approval rate instead. Groups with neither contribute nothing.
func (a *Aggregator) PredictChange(req Request) ([]models.Prediction, error) {
	if !a.state.Trained || len(a.groups)+len(a.teams) == 0 {
		return nil, ownerrors.NotTrained()
	}
	if len(req.Files) == 0 {
		return []models.Prediction{}, nil
	}

	groups := a.resolver.Groups(req.Files)
	total := float64(len(req.Files))

	teamFiles := make(map[string][]string)
	for _, g := range groups {
		for _, team := range g.Teams() {
			teamFiles[team] = append(teamFiles[team], g.Files...)
		}
	}

	change := func(target []string) features.Change {
		return features.Change{
			Files:       req.Files,
			TargetFiles: target,
			Additions:   req.Additions,
			Deletions:   req.Deletions,
			Title:       req.Title,
			CreatedAt:   req.CreatedAt,
		}
	}

	scores := make(map[string]*candidate)
	add := func(dev string, c models.Contribution) {
		cand := scores[dev]
		if cand == nil {
			cand = &candidate{}
			scores[dev] = cand
		}
		cand.score += c.Probability * c.Weight
		cand.contributions = append(cand.contributions, c)
	}

	for _, g := range groups {
		weight := float64(len(g.Files)) / total

		if m, ok := a.groups[g.ID]; ok {
			for _, owner := range g.Individuals() {
				p := a.score(m, change(g.Files), owner)
				add(owner, models.Contribution{Target: g.ID, Family: models.FamilyGroup, Probability: p, Weight: weight})
			}
		} else if fb, ok := a.state.Fallbacks[g.ID]; ok {
			for _, owner := range g.Individuals() {
				p := fb.Stats[owner].ApprovalRate
				add(owner, models.Contribution{Target: g.ID, Family: models.FamilyStats, Probability: p, Weight: weight})
			}
		} else {
			a.logger.Debug("no model or stats for group, owners not scored", "group", g.ID)
		}

		for _, team := range g.Teams() {
			m, ok := a.teams[team]
			if !ok {
				a.logger.Debug("no model for team", "team", team)
				continue
			}
			for _, member := range m.meta.Candidates {
				p := a.score(m, change(teamFiles[team]), member)
				add(member, models.Contribution{Target: team, Family: models.FamilyTeam, Probability: p, Weight: weight})
			}
		}
	}

	out := make([]models.Prediction, 0, len(scores))
	for dev, c := range scores {
		out = append(out, models.Prediction{
			Approver:      dev,
			Confidence:    math.Min(c.score*100, 100),
			Probability:   c.score,
			Reasoning:     reasoning(c.contributions),
			Families:      families(c.contributions),
			Contributions: c.contributions,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Probability != out[j].Probability {
			return out[i].Probability > out[j].Probability
		}
		return out[i].Approver < out[j].Approver
	})
	if req.TopK > 0 && len(out) > req.TopK {
		out = out[:req.TopK]
	}

	a.metrics.RecordPrediction(len(out))
	a.logger.Debug("prediction served", "files", len(req.Files), "groups", len(groups), "candidates", len(out))
	return out, nil
}

func (a *Aggregator) score(m *loadedModel, c features.Change, dev string) float64 {
	x := a.engineer.ForInference(c, m.meta.Stats, dev)
	if m.meta.Scaler != nil {
		x = m.meta.Scaler.Transform(x)
	}
	return m.clf.PredictProbability(x)
}

func families(cs []models.Contribution) []models.Family {
	seen := make(map[models.Family]bool)
	var out []models.Family
	for _, c := range cs {
		if !seen[c.Family] {
			seen[c.Family] = true
			out = append(out, c.Family)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func reasoning(cs []models.Contribution) string {
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, fmt.Sprintf("%s model %s: p=%.2f weight=%.2f", c.Family, c.Target, c.Probability, c.Weight))
	}
	return strings.Join(parts, "; ")
}
