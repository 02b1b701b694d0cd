// Package features turns a (change, target, developer) triple into the
// fixed-order numeric vector consumed by the classifiers.
package features

import (
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rohankatakam/ownerscope/internal/stats"
)

// Feature names in vector order. Training and inference both build vectors
// from this list; a model stores the list it was trained with.
const (
	GroupFileCount     = "group_file_count"
	GroupFileRatio     = "group_file_ratio"
	TotalFileCount     = "total_file_count"
	Additions          = "additions"
	Deletions          = "deletions"
	TotalChanges       = "total_changes"
	TitleLength        = "title_length"
	DevApprovalCount   = "dev_approval_count"
	DevAppearanceCount = "dev_appearance_count"
	DevApprovalRate    = "dev_approval_rate"
	DevFileExperience  = "dev_file_experience"
	DevExperienceScore = "dev_experience_score"
	UniqueExtensions   = "unique_extensions"
	UniqueDirectories  = "unique_directories"
	MaxDepth           = "max_depth"
	HasTests           = "has_tests"
	HasDocs            = "has_docs"
	HasConfig          = "has_config"
	CreatedHour        = "created_hour"
	CreatedWeekday     = "created_weekday"
	CreatedMonth       = "created_month"
)

var schema = []string{
	GroupFileCount, GroupFileRatio, TotalFileCount,
	Additions, Deletions, TotalChanges, TitleLength,
	DevApprovalCount, DevAppearanceCount, DevApprovalRate, DevFileExperience, DevExperienceScore,
	UniqueExtensions, UniqueDirectories, MaxDepth, HasTests, HasDocs, HasConfig,
	CreatedHour, CreatedWeekday, CreatedMonth,
}

// Schema returns a copy of the ordered feature names
func Schema() []string {
	out := make([]string, len(schema))
	copy(out, schema)
	return out
}

// SameSchema reports whether names matches the current schema exactly.
func SameSchema(names []string) bool {
	if len(names) != len(schema) {
		return false
	}
	for i := range names {
		if names[i] != schema[i] {
			return false
		}
	}
	return true
}

// Change is the change-level input to feature construction. Zero values are
// valid: an inference request without metadata yields zero size and time features.
type Change struct {
	Files       []string
	TargetFiles []string
	Additions   int
	Deletions   int
	Title       string
	CreatedAt   time.Time
}

// Vector builds the feature vector for one developer.
func Vector(c Change, s stats.DeveloperStats) []float64 {
	v := make([]float64, 0, len(schema))

	ratio := 0.0
	if len(c.Files) > 0 {
		ratio = float64(len(c.TargetFiles)) / float64(len(c.Files))
	}
	v = append(v,
		float64(len(c.TargetFiles)),
		ratio,
		float64(len(c.Files)),
		float64(c.Additions),
		float64(c.Deletions),
		float64(c.Additions+c.Deletions),
		float64(utf8.RuneCountInString(c.Title)),
	)

	v = append(v,
		float64(s.ApprovalCount),
		float64(s.AppearanceCount),
		s.ApprovalRate,
		float64(s.FileExperience),
		s.ExperienceScore,
	)

	p := filePatterns(c.TargetFiles)
	v = append(v,
		float64(p.extensions),
		float64(p.directories),
		float64(p.maxDepth),
		boolFloat(p.tests),
		boolFloat(p.docs),
		boolFloat(p.config),
	)

	if c.CreatedAt.IsZero() {
		v = append(v, 0, 0, 0)
	} else {
		// Monday is 0
		weekday := (int(c.CreatedAt.Weekday()) + 6) % 7
		v = append(v,
			float64(c.CreatedAt.Hour()),
			float64(weekday),
			float64(c.CreatedAt.Month()),
		)
	}

	return v
}

type patterns struct {
	extensions  int
	directories int
	maxDepth    int
	tests       bool
	docs        bool
	config      bool
}

func filePatterns(files []string) patterns {
	var p patterns
	exts := make(map[string]bool)
	dirs := make(map[string]bool)

	for _, f := range files {
		if ext := path.Ext(f); ext != "" {
			exts[strings.ToLower(ext)] = true
		}
		dirs[path.Dir(f)] = true
		if depth := strings.Count(f, "/") + 1; depth > p.maxDepth {
			p.maxDepth = depth
		}

		lower := strings.ToLower(f)
		if strings.Contains(lower, "test") {
			p.tests = true
		}
		if strings.HasSuffix(f, ".md") {
			p.docs = true
		}
		switch path.Ext(f) {
		case ".json", ".yaml", ".yml":
			p.config = true
		}
	}

	p.extensions = len(exts)
	p.directories = len(dirs)
	return p
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Engineer builds training and inference vectors for a target.
type Engineer struct{}

// NewEngineer creates a feature engineer
func NewEngineer() *Engineer {
	return &Engineer{}
}

// ForTraining builds dev's vector for a historical record. Developer stats
// come from every other record in the index.
func (e *Engineer) ForTraining(idx *stats.Index, t stats.Target, rec stats.Resolved, dev string) []float64 {
	r := rec.Record
	c := Change{
		Files:       r.FilePaths,
		TargetFiles: rec.FilesFor(t),
		Additions:   r.Additions,
		Deletions:   r.Deletions,
		Title:       r.Title,
		CreatedAt:   r.CreatedAt,
	}
	return Vector(c, idx.Excluding(t, dev, rec))
}

// ForInference builds dev's vector for a new change from a persisted stats
// snapshot. A developer missing from the snapshot gets zero stats.
func (e *Engineer) ForInference(c Change, snapshot map[string]stats.DeveloperStats, dev string) []float64 {
	return Vector(c, snapshot[dev])
}
