// Package document holds the records that flow through ingestion.
package document

// FileMetadata describes the source file a chunk came from.
type FileMetadata struct {
	FileName string `json:"file_name"` // Base name: "a.py"
	Path     string `json:"path"`      // Path inside the repository: "pkg/a.py"
	Length   int    `json:"length"`    // Rune count of the cleaned content
}

// ChunkMetadata describes a chunk's position within its file.
type ChunkMetadata struct {
	Index   int    `json:"chunk_index"`
	Length  int    `json:"length"`
	Section string `json:"section,omitempty"` // Heading path, markdown profile only
}

// ChunkMeta is the compound metadata stored with every chunk.
type ChunkMeta struct {
	File  FileMetadata  `json:"file"`
	Chunk ChunkMetadata `json:"chunk"`
}

// Chunk is a contiguous slice of a file's content.
type Chunk struct {
	Text     string
	Metadata ChunkMeta
}

// RepoFile is the per-file processing record. It is created by the filter,
// mutated in place by cleaning, enrichment and chunking, and dropped once its
// chunks are stored.
type RepoFile struct {
	Content  string
	RepoName string
	Metadata FileMetadata
	Chunks   []Chunk
}

// CountChunks returns the total number of chunks across files.
func CountChunks(files []*RepoFile) int {
	n := 0
	for _, f := range files {
		n += len(f.Chunks)
	}
	return n
}

// AllChunks flattens the chunks of every file, preserving file and chunk order.
func AllChunks(files []*RepoFile) []Chunk {
	chunks := make([]Chunk, 0, CountChunks(files))
	for _, f := range files {
		chunks = append(chunks, f.Chunks...)
	}
	return chunks
}
