package kb

import (
	"errors"
	"fmt"
)

// ErrDuplicate indicates a paper with the same content fingerprint is already registered.
var ErrDuplicate = errors.New("paper already in knowledge base")

// Stage names the ingestion step that failed.
type Stage string

// Ingestion stages, in the order they run.
const (
	StageParse     Stage = "parse"
	StageMetadata  Stage = "metadata"
	StageChunk     Stage = "chunk"
	StageDuplicate Stage = "duplicate"
	StageEmbed     Stage = "embed"
	StageIndex     Stage = "index"
)

// IngestionError reports why a file could not be added. Nothing is stored
// when an IngestionError is returned.
type IngestionError struct {
	Stage Stage
	Path  string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingesting %s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}

// IsDuplicate reports whether err is a duplicate-ingestion failure.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StageOf returns the failed stage of an ingestion error, or "" for other errors.
func StageOf(err error) Stage {
	var ingErr *IngestionError
	if errors.As(err, &ingErr) {
		return ingErr.Stage
	}
	return ""
}
