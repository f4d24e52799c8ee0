package chunking

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// Section is a slice of a markdown document starting at an H1 or H2 heading.
// The first section may be a preamble with an empty HeaderPath.
type Section struct {
	HeaderPath string // "# Installation > ## Prerequisites"
	Text       string
}

// Sectioner cuts markdown documents at H1 and H2 boundaries. Section texts
// are contiguous slices of the source, so concatenating them yields the input.
type Sectioner struct {
	parser goldmark.Markdown
}

// NewSectioner creates a sectioner configured with the goldmark parser.
func NewSectioner() *Sectioner {
	md := goldmark.New(
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
	return &Sectioner{parser: md}
}

type boundary struct {
	offset int
	path   string
}

// Sections splits source at top-level H1/H2 headings.
func (s *Sectioner) Sections(source []byte) ([]Section, error) {
	doc := s.parser.Parser().Parse(text.NewReader(source))

	tree, err := toc.Inspect(doc, source,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return nil, fmt.Errorf("inspect TOC: %w", err)
	}
	paths := make(map[string]string)
	collectPaths(tree.Items, nil, paths)

	var bounds []boundary
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level > 2 || heading.Lines().Len() == 0 {
			continue
		}
		var path string
		if id, ok := heading.AttributeString("id"); ok {
			if b, ok := id.([]byte); ok {
				path = paths[string(b)]
			}
		}
		bounds = append(bounds, boundary{
			offset: lineStart(source, heading.Lines().At(0).Start),
			path:   path,
		})
	}

	if len(bounds) == 0 {
		return []Section{{Text: string(source)}}, nil
	}

	var sections []Section
	if pre := source[:bounds[0].offset]; strings.TrimSpace(string(pre)) != "" {
		sections = append(sections, Section{Text: string(pre)})
	}
	for i, b := range bounds {
		end := len(source)
		if i+1 < len(bounds) {
			end = bounds[i+1].offset
		}
		sections = append(sections, Section{
			HeaderPath: b.path,
			Text:       string(source[b.offset:end]),
		})
	}

	return sections, nil
}

// collectPaths maps heading IDs to their title hierarchy.
func collectPaths(items toc.Items, ancestors []string, out map[string]string) {
	for _, item := range items {
		current := append(append([]string(nil), ancestors...), string(item.Title))
		if len(item.ID) > 0 {
			out[string(item.ID)] = formatHeaderPath(current)
		}
		collectPaths(item.Items, current, out)
	}
}

// formatHeaderPath builds a header hierarchy string.
// Example: ["Installation", "Prerequisites"] -> "# Installation > ## Prerequisites"
func formatHeaderPath(path []string) string {
	parts := make([]string, len(path))
	for i, segment := range path {
		parts[i] = strings.Repeat("#", i+1) + " " + segment
	}
	return strings.Join(parts, " > ")
}

// lineStart moves offset back to the beginning of its line so the heading
// marker ("# ") stays inside the section.
func lineStart(source []byte, offset int) int {
	for offset > 0 && source[offset-1] != '\n' {
		offset--
	}
	return offset
}
