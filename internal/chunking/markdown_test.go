package chunking

import (
	"strings"
	"testing"
)

// TestSections_BasicHeaders tests sectioning with H1 and multiple H2s.
func TestSections_BasicHeaders(t *testing.T) {
	input := `# Getting Started

Introduction text here.

## Installation

Install steps here.

## Configuration

Config details here.
`

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d", len(sections))
	}

	expected := []string{
		"# Getting Started",
		"# Getting Started > ## Installation",
		"# Getting Started > ## Configuration",
	}
	for i, want := range expected {
		if sections[i].HeaderPath != want {
			t.Errorf("Section %d HeaderPath: expected %q, got %q", i, want, sections[i].HeaderPath)
		}
	}

	if !strings.HasPrefix(sections[1].Text, "## Installation") {
		t.Errorf("Section 1 should start at its heading, got %q", sections[1].Text)
	}
	if !strings.Contains(sections[2].Text, "Config details here") {
		t.Errorf("Section 2 missing expected content")
	}
}

// TestSections_Preamble tests that text before the first heading is kept.
func TestSections_Preamble(t *testing.T) {
	input := "Some intro without a heading.\n\n# Title\n\nBody text.\n"

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if len(sections) != 2 {
		t.Fatalf("Expected 2 sections, got %d", len(sections))
	}
	if sections[0].HeaderPath != "" {
		t.Errorf("Preamble should have no header path, got %q", sections[0].HeaderPath)
	}
	if sections[0].Text != "Some intro without a heading.\n\n" {
		t.Errorf("Unexpected preamble %q", sections[0].Text)
	}
	if sections[1].HeaderPath != "# Title" {
		t.Errorf("Expected '# Title', got %q", sections[1].HeaderPath)
	}
}

// TestSections_Coverage verifies that sections concatenate back to the source.
func TestSections_Coverage(t *testing.T) {
	input := "Lead.\n\n# One\n\nA\n\n### Deep\n\nB\n\n## Two\n\nC\n\n# Three\n\nD"

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	var b strings.Builder
	for _, s := range sections {
		b.WriteString(s.Text)
	}
	if b.String() != input {
		t.Errorf("Concatenated sections differ from input:\n%q\n%q", b.String(), input)
	}

	// H3 does not start a section: Lead, One, Two, Three
	if len(sections) != 4 {
		t.Errorf("Expected 4 sections, got %d", len(sections))
	}
}

// TestSections_NoHeaders tests that a document without headings is one section.
func TestSections_NoHeaders(t *testing.T) {
	input := "Just a paragraph.\n\nAnd another one."

	sections, err := NewSectioner().Sections([]byte(input))
	if err != nil {
		t.Fatalf("Sections failed: %v", err)
	}

	if len(sections) != 1 {
		t.Fatalf("Expected 1 section, got %d", len(sections))
	}
	if sections[0].Text != input {
		t.Errorf("Section should hold the whole document")
	}
}
