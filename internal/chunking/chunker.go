// Package chunking splits cleaned repository files into ordered chunks using
// a language-aware recursive splitter.
package chunking

import (
	"fmt"
	"unicode/utf8"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/bull/codeqa/internal/document"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 0

	sectionKey = "section"
)

// Config controls how files are split.
type Config struct {
	Language     Language
	ChunkSize    int
	ChunkOverlap int
}

// Chunker splits file content with a single configured language profile.
// There is no per-file language detection.
type Chunker struct {
	language  Language
	splitter  textsplitter.RecursiveCharacter
	sectioner *Sectioner
}

// NewChunker builds a chunker. Zero values fall back to PYTHON, 500 and 0.
func NewChunker(cfg Config) (*Chunker, error) {
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d)", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	if _, ok := separators[cfg.Language]; !ok {
		return nil, fmt.Errorf("unsupported language %q", cfg.Language)
	}

	c := &Chunker{
		language: cfg.Language,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithSeparators(Separators(cfg.Language)),
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
			textsplitter.WithKeepSeparator(true),
			textsplitter.WithLenFunc(utf8.RuneCountInString),
		),
	}
	if cfg.Language == Markdown {
		c.sectioner = NewSectioner()
	}
	return c, nil
}

// Language returns the configured profile.
func (c *Chunker) Language() Language {
	return c.language
}

// Chunk splits file.Content and stores the result in file.Chunks. Each chunk
// carries a copy of the file metadata; chunk metadata is left for
// EnrichChunkMetadata.
func (c *Chunker) Chunk(file *document.RepoFile) error {
	texts, metadatas, err := c.sections(file.Content)
	if err != nil {
		return fmt.Errorf("section %s: %w", file.Metadata.Path, err)
	}

	docs, err := textsplitter.CreateDocuments(c.splitter, texts, metadatas)
	if err != nil {
		return fmt.Errorf("split %s: %w", file.Metadata.Path, err)
	}

	file.Chunks = toChunks(docs, file.Metadata)
	return nil
}

// ChunkAll chunks every file, stopping at the first error.
func (c *Chunker) ChunkAll(files []*document.RepoFile) error {
	for _, f := range files {
		if err := c.Chunk(f); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chunker) sections(content string) ([]string, []map[string]any, error) {
	if c.sectioner == nil {
		return []string{content}, []map[string]any{{}}, nil
	}

	sections, err := c.sectioner.Sections([]byte(content))
	if err != nil {
		return nil, nil, err
	}
	texts := make([]string, len(sections))
	metadatas := make([]map[string]any, len(sections))
	for i, s := range sections {
		texts[i] = s.Text
		metadatas[i] = map[string]any{sectionKey: s.HeaderPath}
	}
	return texts, metadatas, nil
}

func toChunks(docs []schema.Document, fileMeta document.FileMetadata) []document.Chunk {
	chunks := make([]document.Chunk, 0, len(docs))
	for _, doc := range docs {
		section, _ := doc.Metadata[sectionKey].(string)
		chunks = append(chunks, document.Chunk{
			Text: doc.PageContent,
			Metadata: document.ChunkMeta{
				File:  fileMeta,
				Chunk: document.ChunkMetadata{Section: section},
			},
		})
	}
	return chunks
}

// EnrichChunkMetadata assigns zero-based indices and lengths to every chunk
// of every file, in file order.
func EnrichChunkMetadata(files []*document.RepoFile) {
	for _, f := range files {
		for i := range f.Chunks {
			f.Chunks[i].Metadata.Chunk.Index = i
			f.Chunks[i].Metadata.Chunk.Length = utf8.RuneCountInString(f.Chunks[i].Text)
		}
	}
}
