package repo

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bull/codeqa/internal/document"
)

// CleanStep rewrites file content. Steps must not depend on file metadata
// lengths, which are computed after cleaning.
type CleanStep func(content string) string

// TrimTrailingSpace removes trailing whitespace and newlines.
func TrimTrailingSpace(content string) string {
	return strings.TrimRightFunc(content, unicode.IsSpace)
}

// Cleaner normalizes file content through an ordered list of steps.
type Cleaner struct {
	steps []CleanStep
}

// NewCleaner builds a cleaner. With no steps it trims trailing whitespace.
func NewCleaner(steps ...CleanStep) *Cleaner {
	if len(steps) == 0 {
		steps = []CleanStep{TrimTrailingSpace}
	}
	return &Cleaner{steps: steps}
}

// Clean applies every step to file.Content in place and returns file.
func (c *Cleaner) Clean(file *document.RepoFile) *document.RepoFile {
	for _, step := range c.steps {
		file.Content = step(file.Content)
	}
	return file
}

// CleanAll cleans every file.
func (c *Cleaner) CleanAll(files []*document.RepoFile) []*document.RepoFile {
	for _, f := range files {
		c.Clean(f)
	}
	return files
}

// EnrichFileMetadata records the cleaned content length on each file.
// It must run after cleaning and before chunking.
func EnrichFileMetadata(files []*document.RepoFile) {
	for _, f := range files {
		f.Metadata.Length = utf8.RuneCountInString(f.Content)
	}
}
