// Package github fetches markdown documents from a GitHub repository for
// ingestion into the document store.
package github

import (
	"context"
	"os"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate limiting support.
type Client struct {
	*github.Client
}

// NewClient creates a GitHub client with automatic rate-limit handling. When
// GITHUB_TOKEN is set the client is authenticated, which raises the rate
// limit from 60 to 5000 requests per hour.
func NewClient(ctx context.Context) (*Client, error) {
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, err
	}

	ghClient := github.NewClient(rateLimiter)
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	return &Client{Client: ghClient}, nil
}
