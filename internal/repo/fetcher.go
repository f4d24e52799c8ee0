// Package repo obtains repository working trees and turns their files into
// RepoFile records ready for chunking.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/bull/codeqa/internal/github"
)

// ErrFetch marks clone and open failures.
var ErrFetch = errors.New("fetch repository")

// Prober looks a repository up before it is cloned.
type Prober interface {
	Resolve(ctx context.Context, repoURL string) (*github.RepoInfo, error)
}

// Checkout is a local working tree ready for filtering.
type Checkout struct {
	Repo      *git.Repository
	Name      string // Derived from the URL, also the directory name
	Dir       string
	CommitSHA string
	Cloned    bool // False when an existing directory was reused
}

// Fetcher clones repositories into a cache directory, one subdirectory per
// repository name. Existing directories are reused as-is and never pulled.
type Fetcher struct {
	baseDir string
	prober  Prober
	logger  *slog.Logger
}

// NewFetcher creates a fetcher rooted at baseDir. prober may be nil.
func NewFetcher(baseDir string, prober Prober, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		baseDir: baseDir,
		prober:  prober,
		logger:  logger,
	}
}

// Fetch returns a working tree for repoURL, cloning it when absent.
func (f *Fetcher) Fetch(ctx context.Context, repoURL string) (*Checkout, error) {
	name := github.RepoName(repoURL)
	if err := github.ValidateRepoName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	dir, err := f.checkoutDir(name)
	if err != nil {
		return nil, err
	}

	checkout := &Checkout{Name: name, Dir: dir}

	if _, err := os.Stat(dir); err == nil {
		f.logger.Info("Repository already downloaded", "repo", name, "dir", dir)
		repo, err := git.PlainOpen(dir)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrFetch, dir, err)
		}
		checkout.Repo = repo
	} else {
		repo, err := f.clone(ctx, repoURL, dir)
		if err != nil {
			return nil, err
		}
		checkout.Repo = repo
		checkout.Cloned = true
	}

	head, err := checkout.Repo.Head()
	if err != nil {
		return nil, fmt.Errorf("%w: resolve HEAD: %v", ErrFetch, err)
	}
	checkout.CommitSHA = head.Hash().String()

	return checkout, nil
}

// checkoutDir joins name onto the cache directory and refuses any result
// that is not a direct child of it.
func (f *Fetcher) checkoutDir(name string) (string, error) {
	base, err := filepath.Abs(f.baseDir)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %v", ErrFetch, f.baseDir, err)
	}
	dir := filepath.Join(base, name)
	if filepath.Dir(dir) != base {
		return "", fmt.Errorf("%w: %q escapes %s", ErrFetch, name, f.baseDir)
	}
	return dir, nil
}

func (f *Fetcher) clone(ctx context.Context, repoURL, dir string) (*git.Repository, error) {
	opts := &git.CloneOptions{URL: repoURL}

	if f.prober != nil {
		info, err := f.prober.Resolve(ctx, repoURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFetch, err)
		}
		opts.URL = info.CloneURL
		if info.DefaultBranch != "" {
			opts.ReferenceName = plumbing.NewBranchReferenceName(info.DefaultBranch)
			opts.SingleBranch = true
		}
		f.logger.Debug("Resolved repository", "clone_url", info.CloneURL, "branch", info.DefaultBranch, "commit", info.CommitSHA)
	}

	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create %s: %v", ErrFetch, f.baseDir, err)
	}

	f.logger.Info("Downloading repository", "url", opts.URL, "dir", dir)
	repo, err := git.PlainCloneContext(ctx, dir, false, opts)
	if err != nil {
		// A half-written checkout would be reused forever, drop it
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("%w: clone %s: %v", ErrFetch, opts.URL, err)
	}

	return repo, nil
}
