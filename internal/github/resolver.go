package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v81/github"
)

// RepoInfo is what the GitHub API tells us about a repository before cloning.
type RepoInfo struct {
	Owner         string
	Name          string
	CloneURL      string
	DefaultBranch string
	CommitSHA     string // HEAD of the default branch
	Private       bool
}

// Resolver looks repositories up through the GitHub API.
type Resolver struct {
	client *Client
}

// NewResolver creates a resolver backed by client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// Resolve fetches repository metadata and the latest commit on the default branch.
func (r *Resolver) Resolve(ctx context.Context, repoURL string) (*RepoInfo, error) {
	owner, name, err := OwnerAndRepo(repoURL)
	if err != nil {
		return nil, err
	}

	repo, _, err := r.client.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get repository %s/%s: %w", owner, name, err)
	}

	info := &RepoInfo{
		Owner:         owner,
		Name:          name,
		CloneURL:      repo.GetCloneURL(),
		DefaultBranch: repo.GetDefaultBranch(),
		Private:       repo.GetPrivate(),
	}
	if info.Private {
		return nil, fmt.Errorf("repository %s/%s is private", owner, name)
	}

	sha, err := r.latestCommitSHA(ctx, owner, name, info.DefaultBranch)
	if err != nil {
		return nil, err
	}
	info.CommitSHA = sha

	return info, nil
}

// latestCommitSHA retrieves the SHA of the most recent commit on branch.
func (r *Resolver) latestCommitSHA(ctx context.Context, owner, name, branch string) (string, error) {
	commits, _, err := r.client.Repositories.ListCommits(
		ctx,
		owner,
		name,
		&github.CommitsListOptions{
			SHA: branch,
			ListOptions: github.ListOptions{
				PerPage: 1,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("failed to get latest commit: %w", err)
	}

	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found on %s", branch)
	}

	return commits[0].GetSHA(), nil
}
