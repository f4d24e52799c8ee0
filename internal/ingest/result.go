package ingest

import (
	"errors"
	"fmt"
	"time"
)

// Status describes a successful ingestion.
type Status string

const (
	StatusIngested        Status = "ingested"
	StatusAlreadyIngested Status = "already_ingested"
)

// Reason classifies an ingestion failure.
type Reason string

const (
	ReasonFetch      Reason = "fetch"
	ReasonProcessing Reason = "processing"
	ReasonStorage    Reason = "storage"
)

// ErrNoContent is the processing failure for a repository without any chunkable text.
var ErrNoContent = errors.New("no eligible content")

// Result contains statistics about an ingestion.
type Result struct {
	RepoName     string
	Status       Status
	Collection   string // Physical collection written, differs from RepoName in atomic mode
	Files        int
	SkippedFiles int
	Chunks       int
	Points       int
	CommitSHA    string
	Duration     time.Duration
}

// Failure is returned by Ingest when a stage fails after URL validation.
type Failure struct {
	Reason   Reason
	RepoName string
	Err      error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("ingest %s: %s: %v", f.RepoName, f.Reason, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// FailureReason extracts the failure reason from err, if it carries one.
func FailureReason(err error) (Reason, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Reason, true
	}
	return "", false
}

// EmbeddingMode selects how chunk vectors are produced.
type EmbeddingMode int

const (
	// ModeLibrary embeds chunk texts with the configured Embedder.
	ModeLibrary EmbeddingMode = iota
	// ModeCustom computes one vector per chunk with the Fuser.
	ModeCustom
)

// ModeFor maps the insert-custom-embeddings flag to a mode.
func ModeFor(insertCustomEmbeddings bool) EmbeddingMode {
	if insertCustomEmbeddings {
		return ModeCustom
	}
	return ModeLibrary
}

func (m EmbeddingMode) String() string {
	if m == ModeCustom {
		return "custom"
	}
	return "library"
}

// Idempotency selects how a repeated ingestion is detected and how data is published.
type Idempotency string

const (
	// IdempotencyPresence writes straight into the repository collection;
	// its existence marks the repository as ingested.
	IdempotencyPresence Idempotency = "presence"
	// IdempotencyAtomic writes into a staging collection and publishes it
	// under the repository name as an alias once every point is stored.
	IdempotencyAtomic Idempotency = "atomic"
)

// ParseIdempotency resolves a configured idempotency mode.
func ParseIdempotency(s string) (Idempotency, error) {
	switch Idempotency(s) {
	case "", IdempotencyPresence:
		return IdempotencyPresence, nil
	case IdempotencyAtomic:
		return IdempotencyAtomic, nil
	default:
		return "", fmt.Errorf("unknown idempotency mode %q", s)
	}
}
