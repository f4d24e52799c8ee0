// Package testutil provides fixtures and in-memory collaborators for tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// NewGitRepo creates a committed git repository under a temp dir holding files
// (path -> content). When originURL is non-empty it is registered as origin.
// Returns the repository directory.
func NewGitRepo(t *testing.T, name, originURL string, files map[string]string) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), name)
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		full := filepath.Join(dir, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(files[p]), 0o644))
		_, err := wt.Add(p)
		require.NoError(t, err)
	}

	_, err = wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "test",
			Email: "test@example.com",
			When:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	if originURL != "" {
		_, err = repo.CreateRemote(&config.RemoteConfig{
			Name: git.DefaultRemoteName,
			URLs: []string{originURL},
		})
		require.NoError(t, err)
	}

	return dir
}
