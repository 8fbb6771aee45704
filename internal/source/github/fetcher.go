package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"
)

// Doc is a markdown document fetched from a repository.
type Doc struct {
	Path    string // relative path within the docs directory
	Content string
	SHA     string // git blob SHA
	URL     string // raw content URL
}

// Fetcher lists and fetches markdown files under one directory of one
// repository.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
}

// NewFetcher creates a fetcher for owner/repo scoped to basePath.
func NewFetcher(client *Client, owner, repo, basePath string) *Fetcher {
	return &Fetcher{client: client, owner: owner, repo: repo, basePath: basePath}
}

// Repository returns the owner/repo identifier this fetcher reads from.
func (f *Fetcher) Repository() string {
	return f.owner + "/" + f.repo
}

// List recursively lists all markdown files under the base path, as paths
// relative to it.
func (f *Fetcher) List(ctx context.Context) ([]string, error) {
	return f.listRecursive(ctx, f.basePath, "")
}

func (f *Fetcher) listRecursive(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	_, dirContents, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", fullPath, err)
	}

	var docs []string
	for _, item := range dirContents {
		if item.Type == nil || item.Name == nil {
			continue
		}
		itemRelPath := path.Join(relativePath, *item.Name)

		switch *item.Type {
		case "file":
			if strings.HasSuffix(*item.Name, ".md") {
				docs = append(docs, itemRelPath)
			}
		case "dir":
			sub, err := f.listRecursive(ctx, path.Join(fullPath, *item.Name), itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, sub...)
		}
	}
	return docs, nil
}

// Fetch retrieves the content of one markdown file by relative path.
func (f *Fetcher) Fetch(ctx context.Context, relativePath string) (*Doc, error) {
	fullPath := path.Join(f.basePath, relativePath)

	fileContent, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", fullPath, err)
	}
	if fileContent == nil {
		return nil, fmt.Errorf("no file content returned for %s", fullPath)
	}

	content, err := base64.StdEncoding.DecodeString(*fileContent.Content)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", fullPath, err)
	}

	return &Doc{
		Path:    relativePath,
		Content: string(content),
		SHA:     fileContent.GetSHA(),
		URL: fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/main/%s",
			f.owner, f.repo, fullPath),
	}, nil
}

// LatestCommitSHA returns the SHA of the most recent commit touching the
// base path.
func (f *Fetcher) LatestCommitSHA(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo,
		&github.CommitsListOptions{
			Path:        f.basePath,
			ListOptions: github.ListOptions{PerPage: 1},
		})
	if err != nil {
		return "", fmt.Errorf("listing commits: %w", err)
	}
	if len(commits) == 0 || commits[0].SHA == nil {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}
	return *commits[0].SHA, nil
}
