package repo

import (
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/bull/codeqa/internal/document"
	"github.com/bull/codeqa/internal/github"
)

const notebookExt = ".ipynb"

// FilterResult is the output of a tree walk.
type FilterResult struct {
	Files   []*document.RepoFile
	Skipped int // Entries dropped because their content was not text
}

// Filter selects the text files of a repository's HEAD tree.
type Filter struct {
	logger *slog.Logger
}

// NewFilter creates a file filter.
func NewFilter(logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{logger: logger}
}

// Eligible reports whether a tree path may be ingested: no hidden segment
// anywhere in the path and not a notebook.
func Eligible(p string) bool {
	for _, segment := range strings.Split(p, "/") {
		if strings.HasPrefix(segment, ".") {
			return false
		}
	}
	return !strings.HasSuffix(p, notebookExt)
}

// Files walks the HEAD tree of repo and returns one RepoFile per eligible
// text blob. Undecodable blobs are counted and skipped, never returned as errors.
func (f *Filter) Files(repo *git.Repository, fallbackName string) (*FilterResult, error) {
	repoName := RemoteRepoName(repo, fallbackName)

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", head.Hash(), err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}

	result := &FilterResult{}
	err = tree.Files().ForEach(func(file *object.File) error {
		if !isRegular(file.Mode) || !Eligible(file.Name) {
			return nil
		}

		content, ok := decode(file)
		if !ok {
			f.logger.Debug("Could not parse file", "path", file.Name)
			result.Skipped++
			return nil
		}
		if content == "" {
			return nil
		}

		result.Files = append(result.Files, &document.RepoFile{
			Content:  content,
			RepoName: repoName,
			Metadata: document.FileMetadata{
				FileName: path.Base(file.Name),
				Path:     file.Name,
			},
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk tree: %w", err)
	}

	f.logger.Info("Filtered text files", "repo", repoName, "files", len(result.Files), "skipped", result.Skipped)
	return result, nil
}

// RemoteRepoName derives the repository name from the origin remote,
// falling back when the repository has no usable origin.
func RemoteRepoName(repo *git.Repository, fallback string) string {
	remote, err := repo.Remote(git.DefaultRemoteName)
	if err != nil {
		return fallback
	}
	urls := remote.Config().URLs
	if len(urls) == 0 || urls[0] == "" {
		return fallback
	}
	return github.RepoName(urls[0])
}

func isRegular(mode filemode.FileMode) bool {
	return mode == filemode.Regular || mode == filemode.Executable || mode == filemode.Deprecated
}

// decode returns the blob as a string when it is UTF-8 text.
func decode(file *object.File) (string, bool) {
	binary, err := file.IsBinary()
	if err != nil || binary {
		return "", false
	}
	content, err := file.Contents()
	if err != nil || !utf8.ValidString(content) {
		return "", false
	}
	return content, true
}
