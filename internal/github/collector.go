// Package github collects merged pull requests and ownership files from
// GitHub as change records.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/sync/errgroup"

	"github.com/rohankatakam/ownerscope/internal/codeowners"
	ownerrors "github.com/rohankatakam/ownerscope/internal/errors"
	"github.com/rohankatakam/ownerscope/internal/metrics"
	"github.com/rohankatakam/ownerscope/internal/models"
)

// DefaultOwnershipPaths are tried in order when fetching the ownership file
var DefaultOwnershipPaths = []string{".github/CODEOWNERS", "CODEOWNERS", "docs/CODEOWNERS"}

const reviewApproved = "APPROVED"

// CollectorConfig bounds a collection run
type CollectorConfig struct {
	PerPage        int
	MaxPages       int
	MaxRecords     int
	EmptyPageLimit int
	OwnershipPaths []string
}

// PageHandler receives the new records of each page before the next page is
// fetched. Returning an error stops collection.
type PageHandler func(ctx context.Context, page int, records []*models.ChangeRecord) error

// CollectResult summarises a collection run
type CollectResult struct {
	Pages      int
	Records    int
	Skipped    int
	StopReason string
}

// Collector pages through a repository's merged pull requests
type Collector struct {
	client  *Client
	owner   string
	name    string
	cfg     CollectorConfig
	metrics *metrics.Manager
	logger  *slog.Logger
}

// NewCollector creates a collector for owner/name
func NewCollector(client *Client, repo string, cfg CollectorConfig, m *metrics.Manager) (*Collector, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, ownerrors.ValidationErrorf("repository must be owner/name, got %q", repo)
	}
	if cfg.PerPage <= 0 || cfg.PerPage > 100 {
		cfg.PerPage = 100
	}
	if cfg.EmptyPageLimit <= 0 {
		cfg.EmptyPageLimit = 3
	}
	if len(cfg.OwnershipPaths) == 0 {
		cfg.OwnershipPaths = DefaultOwnershipPaths
	}
	return &Collector{
		client:  client,
		owner:   owner,
		name:    name,
		cfg:     cfg,
		metrics: m,
		logger:  slog.Default().With("component", "github_collector", "repo", repo),
	}, nil
}

// Repo returns owner/name
func (c *Collector) Repo() string {
	return c.owner + "/" + c.name
}

// FetchOwnership returns the parsed rules of the first ownership file found.
func (c *Collector) FetchOwnership(ctx context.Context) ([]codeowners.Rule, string, error) {
	for _, path := range c.cfg.OwnershipPaths {
		content, err := c.client.FileContent(ctx, c.owner, c.name, path)
		if err != nil {
			c.logger.Debug("ownership file not available", "path", path, "error", err)
			continue
		}
		rules := codeowners.Parse(content)
		if len(rules) == 0 {
			continue
		}
		c.logger.Info("fetched ownership file", "path", path, "rules", len(rules))
		return rules, path, nil
	}
	return nil, "", ownerrors.NoOwnershipSource(c.Repo() + ":" + strings.Join(c.cfg.OwnershipPaths, ","))
}

// Collect pages through closed pull requests, newest update first, and
// hands each page's merged, not-yet-known pull requests to onPage. It stops
// at MaxPages, MaxRecords, the last page, or EmptyPageLimit consecutive pages
// without new records. A fetch failure is returned as an upstream error
// carrying the page number; pages already handed to onPage stay committed.
func (c *Collector) Collect(ctx context.Context, known map[int64]bool, onPage PageHandler) (*CollectResult, error) {
	res := &CollectResult{}
	seen := make(map[int64]bool, len(known))
	for id := range known {
		seen[id] = true
	}

	empty := 0
	for page := 1; ; {
		if c.cfg.MaxPages > 0 && res.Pages >= c.cfg.MaxPages {
			res.StopReason = "max pages"
			break
		}

		prs, next, err := c.client.ClosedPullRequests(ctx, c.owner, c.name, page, c.cfg.PerPage)
		if err != nil {
			c.metrics.RecordFetchError()
			return res, ownerrors.UpstreamError(err, page, "list pull requests")
		}
		res.Pages++
		if len(prs) == 0 {
			res.StopReason = "no more pull requests"
			break
		}

		var records []*models.ChangeRecord
		full := false
		for _, pr := range prs {
			if pr.MergedAt == nil {
				continue
			}
			id := int64(pr.GetNumber())
			if seen[id] {
				res.Skipped++
				continue
			}
			if c.cfg.MaxRecords > 0 && res.Records+len(records) >= c.cfg.MaxRecords {
				full = true
				break
			}

			rec, err := c.record(ctx, pr)
			if err != nil {
				c.metrics.RecordFetchError()
				return res, ownerrors.UpstreamError(err, page, fmt.Sprintf("fetch pull request #%d", pr.GetNumber()))
			}
			records = append(records, rec)
			seen[id] = true
		}

		c.metrics.RecordPage(len(records))
		c.logger.Info("fetched page", "page", page, "new", len(records), "skipped_total", res.Skipped)

		if len(records) > 0 {
			empty = 0
			if err := onPage(ctx, page, records); err != nil {
				return res, err
			}
			res.Records += len(records)
		} else {
			empty++
			if empty >= c.cfg.EmptyPageLimit {
				res.StopReason = fmt.Sprintf("%d consecutive pages without new pull requests", empty)
				break
			}
		}

		if full || (c.cfg.MaxRecords > 0 && res.Records >= c.cfg.MaxRecords) {
			res.StopReason = "max records"
			break
		}
		if next == 0 {
			res.StopReason = "last page"
			break
		}
		page = next
	}

	c.logger.Info("collection finished", "pages", res.Pages, "records", res.Records, "reason", res.StopReason)
	return res, nil
}

// record fetches files and reviews of one pull request concurrently.
func (c *Collector) record(ctx context.Context, pr *github.PullRequest) (*models.ChangeRecord, error) {
	number := pr.GetNumber()

	var (
		files   []*github.CommitFile
		reviews []*github.PullRequestReview
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		files, err = c.client.PullRequestFiles(gctx, c.owner, c.name, number)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = c.client.PullRequestReviews(gctx, c.owner, c.name, number)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rec := &models.ChangeRecord{
		ID:        int64(number),
		RepoID:    c.Repo(),
		Author:    pr.GetUser().GetLogin(),
		Title:     pr.GetTitle(),
		CreatedAt: pr.GetCreatedAt().Time.UTC(),
	}
	if pr.MergedAt != nil {
		merged := pr.GetMergedAt().Time.UTC()
		rec.MergedAt = &merged
	}

	for _, f := range files {
		rec.FilePaths = append(rec.FilePaths, f.GetFilename())
		rec.Additions += f.GetAdditions()
		rec.Deletions += f.GetDeletions()
	}

	for _, r := range reviews {
		if r.GetState() == reviewApproved {
			rec.Approvers = append(rec.Approvers, r.GetUser().GetLogin())
		}
	}
	rec.Normalize()

	return rec, nil
}
