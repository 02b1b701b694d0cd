package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"
)

const (
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 30 * time.Second
)

// Client wraps the GitHub API client with rate limiting and retries
type Client struct {
	client      *github.Client
	rateLimiter *rate.Limiter
	attempts    uint
	logger      *slog.Logger
}

// NewClient creates a new GitHub client. rateLimit is requests per second.
func NewClient(token string, rateLimit float64, attempts uint) *Client {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	return newClient(gh, rateLimit, attempts)
}

func newClient(gh *github.Client, rateLimit float64, attempts uint) *Client {
	if rateLimit <= 0 {
		rateLimit = 1
	}
	if attempts == 0 {
		attempts = 3
	}
	return &Client{
		client:      gh,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
		attempts:    attempts,
		logger:      slog.Default().With("component", "github_client"),
	}
}

// permanentError marks failures that retrying cannot fix
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// do waits for the limiter and retries fn with exponential backoff.
// 404 responses are returned immediately.
func (c *Client) do(ctx context.Context, operation string, fn func() (*github.Response, error)) error {
	return retry.Do(
		func() error {
			if err := c.rateLimiter.Wait(ctx); err != nil {
				return &permanentError{fmt.Errorf("rate limiter: %w", err)}
			}
			resp, err := fn()
			if err != nil && resp != nil && resp.StatusCode == http.StatusNotFound {
				return &permanentError{err}
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("github request failed, retrying",
				"operation", operation, "attempt", n+1, "max_attempts", c.attempts, "error", err)
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var p *permanentError
			return !errors.As(err, &p)
		}),
	)
}

// FileContent returns the decoded content of path on the default branch
func (c *Client) FileContent(ctx context.Context, owner, name, path string) (string, error) {
	var file *github.RepositoryContent
	err := c.do(ctx, "get contents", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		file, _, resp, err = c.client.Repositories.GetContents(ctx, owner, name, path, nil)
		return resp, err
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", path, err)
	}
	if file == nil {
		return "", fmt.Errorf("fetch %s: not a file", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return content, nil
}

// ClosedPullRequests lists one page of closed pull requests, most recently updated first
func (c *Client) ClosedPullRequests(ctx context.Context, owner, name string, page, perPage int) ([]*github.PullRequest, int, error) {
	opts := &github.PullRequestListOptions{
		State:       "closed",
		Sort:        "updated",
		Direction:   "desc",
		ListOptions: github.ListOptions{Page: page, PerPage: perPage},
	}

	var (
		prs  []*github.PullRequest
		next int
	)
	err := c.do(ctx, "list pull requests", func() (*github.Response, error) {
		var resp *github.Response
		var err error
		prs, resp, err = c.client.PullRequests.List(ctx, owner, name, opts)
		if resp != nil {
			next = resp.NextPage
		}
		return resp, err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("fetch pull requests: %w", err)
	}
	return prs, next, nil
}

// PullRequestFiles lists every file changed by a pull request
func (c *Client) PullRequestFiles(ctx context.Context, owner, name string, number int) ([]*github.CommitFile, error) {
	opts := &github.ListOptions{PerPage: 100}
	var all []*github.CommitFile

	for {
		var (
			files []*github.CommitFile
			resp  *github.Response
		)
		err := c.do(ctx, "list pull request files", func() (*github.Response, error) {
			var err error
			files, resp, err = c.client.PullRequests.ListFiles(ctx, owner, name, number, opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch files of #%d: %w", number, err)
		}
		all = append(all, files...)

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// PullRequestReviews lists every review of a pull request
func (c *Client) PullRequestReviews(ctx context.Context, owner, name string, number int) ([]*github.PullRequestReview, error) {
	opts := &github.ListOptions{PerPage: 100}
	var all []*github.PullRequestReview

	for {
		var (
			reviews []*github.PullRequestReview
			resp    *github.Response
		)
		err := c.do(ctx, "list pull request reviews", func() (*github.Response, error) {
			var err error
			reviews, resp, err = c.client.PullRequests.ListReviews(ctx, owner, name, number, opts)
			return resp, err
		})
		if err != nil {
			return nil, fmt.Errorf("fetch reviews of #%d: %w", number, err)
		}
		all = append(all, reviews...)

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}
