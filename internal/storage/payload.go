package storage

import (
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/codeqa/internal/document"
)

// Payload keys. A point's payload is {"text": ..., "metadata": {"file": ..., "chunk": ...}}.
const (
	payloadText     = "text"
	payloadMetadata = "metadata"
	payloadFile     = "file"
	payloadChunk    = "chunk"
)

// chunkPayload builds the payload map stored with a chunk.
func chunkPayload(chunk document.Chunk) map[string]any {
	meta := chunk.Metadata
	chunkMeta := map[string]any{
		"chunk_index": meta.Chunk.Index,
		"length":      meta.Chunk.Length,
	}
	if meta.Chunk.Section != "" {
		chunkMeta["section"] = meta.Chunk.Section
	}

	return map[string]any{
		payloadText: chunk.Text,
		payloadMetadata: map[string]any{
			payloadFile: map[string]any{
				"file_name": meta.File.FileName,
				"path":      meta.File.Path,
				"length":    meta.File.Length,
			},
			payloadChunk: chunkMeta,
		},
	}
}

// chunkFromPayload is the inverse of chunkPayload. Missing fields stay zero.
func chunkFromPayload(payload map[string]*qdrant.Value) document.Chunk {
	metadata := fields(payload[payloadMetadata])
	file := fields(metadata[payloadFile])
	chunk := fields(metadata[payloadChunk])

	return document.Chunk{
		Text: payload[payloadText].GetStringValue(),
		Metadata: document.ChunkMeta{
			File: document.FileMetadata{
				FileName: file["file_name"].GetStringValue(),
				Path:     file["path"].GetStringValue(),
				Length:   int(file["length"].GetIntegerValue()),
			},
			Chunk: document.ChunkMetadata{
				Index:   int(chunk["chunk_index"].GetIntegerValue()),
				Length:  int(chunk["length"].GetIntegerValue()),
				Section: chunk["section"].GetStringValue(),
			},
		},
	}
}

func fields(v *qdrant.Value) map[string]*qdrant.Value {
	return v.GetStructValue().GetFields()
}
