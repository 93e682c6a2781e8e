package gh

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v57/github"

	"github.com/halcyonlabs/docsentry/internal/config"
)

// Client is a thin wrapper over the GitHub API for the docs repository.
type Client struct {
	gh     *github.Client
	owner  string
	repo   string
	branch string
	path   string
}

// NewClient creates a docs-repository client from config.
func NewClient(cfg config.GitHubConfig) *Client {
	gh := github.NewClient(nil)
	if cfg.Token.IsSet() {
		gh = gh.WithAuthToken(cfg.Token.Value())
	}
	return &Client{
		gh:     gh,
		owner:  cfg.DocsOwner,
		repo:   cfg.DocsRepo,
		branch: cfg.DocsBranch,
		path:   cfg.DocsPath,
	}
}

// ListDocPages returns the markdown page paths under the configured docs
// subtree of the docs repository.
func (c *Client) ListDocPages(ctx context.Context) ([]string, error) {
	ref, _, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "refs/heads/"+c.branch)
	if err != nil {
		return nil, fmt.Errorf("resolving branch %s: %w", c.branch, err)
	}

	tree, _, err := c.gh.Git.GetTree(ctx, c.owner, c.repo, ref.GetObject().GetSHA(), true)
	if err != nil {
		return nil, fmt.Errorf("listing docs tree: %w", err)
	}

	var pages []string
	prefix := strings.TrimSuffix(c.path, "/") + "/"
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		p := entry.GetPath()
		if !strings.HasPrefix(p, prefix) && c.path != "" {
			continue
		}
		if strings.HasSuffix(p, ".md") || strings.HasSuffix(p, ".mdx") {
			pages = append(pages, p)
		}
	}
	return pages, nil
}

// GetPageContent fetches the current content of a docs page.
func (c *Client) GetPageContent(ctx context.Context, path string) (string, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path,
		&github.RepositoryContentGetOptions{Ref: c.branch})
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", path, err)
	}
	if file == nil {
		return "", fmt.Errorf("%s is not a file", path)
	}
	content, err := file.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding %s: %w", path, err)
	}
	return content, nil
}

// PullRequestFiles returns the changed file paths of a pull request in the
// monitored source repository (used for merged-PR events).
func (c *Client) PullRequestFiles(ctx context.Context, owner, repo string, number int) ([]string, error) {
	var paths []string
	opts := &github.ListOptions{PerPage: 100}
	for {
		files, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing PR files: %w", err)
		}
		for _, f := range files {
			paths = append(paths, f.GetFilename())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return paths, nil
}

// OpenDocsPR creates a branch off the docs base branch, commits the updated
// pages, and opens a pull request. Returns the PR URL.
func (c *Client) OpenDocsPR(ctx context.Context, branchName, title, body string, pages map[string]string) (string, error) {
	if len(pages) == 0 {
		return "", fmt.Errorf("no pages to commit")
	}

	baseRef, _, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "refs/heads/"+c.branch)
	if err != nil {
		return "", fmt.Errorf("resolving base branch: %w", err)
	}

	newRef := "refs/heads/" + branchName
	_, _, err = c.gh.Git.CreateRef(ctx, c.owner, c.repo, &github.Reference{
		Ref:    github.String(newRef),
		Object: &github.GitObject{SHA: baseRef.GetObject().SHA},
	})
	if err != nil {
		return "", fmt.Errorf("creating branch %s: %w", branchName, err)
	}

	for path, content := range pages {
		opts := &github.RepositoryContentFileOptions{
			Message: github.String(fmt.Sprintf("docs: update %s", path)),
			Content: []byte(content),
			Branch:  github.String(branchName),
		}

		// UpdateFile needs the current blob SHA; a missing page is created.
		existing, _, _, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path,
			&github.RepositoryContentGetOptions{Ref: c.branch})
		if err == nil && existing != nil {
			opts.SHA = existing.SHA
			if _, _, err := c.gh.Repositories.UpdateFile(ctx, c.owner, c.repo, path, opts); err != nil {
				return "", fmt.Errorf("updating %s: %w", path, err)
			}
		} else {
			if _, _, err := c.gh.Repositories.CreateFile(ctx, c.owner, c.repo, path, opts); err != nil {
				return "", fmt.Errorf("creating %s: %w", path, err)
			}
		}
	}

	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(branchName),
		Base:  github.String(c.branch),
		Body:  github.String(body),
	})
	if err != nil {
		return "", fmt.Errorf("opening pull request: %w", err)
	}
	return pr.GetHTMLURL(), nil
}
