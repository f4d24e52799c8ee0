package github

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned for repository URLs that are not GitHub-shaped.
var ErrInvalidURL = errors.New("invalid repository url")

// repoURLPattern matches https?://(www.)?github.com/<owner>/<repo> as a prefix;
// anything after the repo segment (".git", "/tree/main", ...) is tolerated.
var repoURLPattern = regexp.MustCompile(`^https?://(?:www\.)?github\.com/[a-zA-Z0-9-]+/[a-zA-Z0-9-]+`)

// repoNamePattern is the shape a derived repository name must have to be
// used as a collection and a directory name.
var repoNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// IsValidURL reports whether raw looks like a GitHub repository URL whose
// derived name is usable.
func IsValidURL(raw string) bool {
	return repoURLPattern.MatchString(raw) && ValidateRepoName(RepoName(raw)) == nil
}

// ValidateURL returns an error wrapping ErrInvalidURL when raw is rejected.
func ValidateURL(raw string) error {
	if !repoURLPattern.MatchString(raw) {
		return fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	if err := ValidateRepoName(RepoName(raw)); err != nil {
		return fmt.Errorf("%w (from %q)", err, raw)
	}
	return nil
}

// ValidateRepoName rejects names that cannot serve as a single path
// segment: empty, "." and "..", or anything outside [A-Za-z0-9._-].
func ValidateRepoName(name string) error {
	if name == "" || name == "." || name == ".." || !repoNamePattern.MatchString(name) {
		return fmt.Errorf("%w: unusable repository name %q", ErrInvalidURL, name)
	}
	return nil
}

// RepoName derives the collection and checkout directory name from a
// repository URL or path: the last non-empty path segment without ".git".
// Percent-escapes are decoded, so the result must pass ValidateRepoName
// before it touches the filesystem.
//
//	https://github.com/owner/project.git -> project
//	https://github.com/owner/project/    -> project
//	https://github.com/owner/project/..  -> ..
func RepoName(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	return strings.TrimSuffix(path.Base(p), ".git")
}

// OwnerAndRepo splits a validated GitHub URL into owner and repository name.
func OwnerAndRepo(raw string) (string, string, error) {
	if err := ValidateURL(raw); err != nil {
		return "", "", err
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
