// Package vectorindex holds chunk embeddings in memory and answers
// nearest-neighbor queries by cosine similarity.
package vectorindex

import (
	"errors"
	"fmt"

	"github.com/scholarkb/scholarkb/internal/paper"
)

// ErrDimensionMismatch is returned when a vector does not match the index dimensions.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Entry is one indexed chunk. Ordinal is the owning paper's ingestion order
// and breaks ties between equal scores.
type Entry struct {
	Chunk   paper.Chunk
	Ordinal int64
}

// Hit is a scored search result.
type Hit struct {
	Chunk   paper.Chunk
	Ordinal int64
	Score   float32
}

// Index is an in-memory cosine-similarity index over chunks.
// It is not safe for concurrent mutation; the knowledge base serializes writers.
type Index struct {
	model      string
	dimensions int
	entries    []Entry
	byPaper    map[string][]int
}

// New creates an empty index for vectors produced by model.
func New(model string, dimensions int) *Index {
	return &Index{
		model:      model,
		dimensions: dimensions,
		byPaper:    make(map[string][]int),
	}
}

// Model returns the embedding model the index was built with.
func (idx *Index) Model() string { return idx.model }

// Dimensions returns the vector size of the index.
func (idx *Index) Dimensions() int { return idx.dimensions }

// Len returns the number of indexed chunks.
func (idx *Index) Len() int { return len(idx.entries) }

// Papers returns the number of distinct papers with indexed chunks.
func (idx *Index) Papers() int { return len(idx.byPaper) }

// Validate checks that every chunk carries a vector of the index dimensions.
func (idx *Index) Validate(chunks []paper.Chunk) error {
	for _, c := range chunks {
		if len(c.Embedding) != idx.dimensions {
			return fmt.Errorf("%w: chunk %s/%d has %d, want %d",
				ErrDimensionMismatch, c.PaperID, c.Seq, len(c.Embedding), idx.dimensions)
		}
	}
	return nil
}

// Add indexes the chunks of one paper. Either all chunks are added or none.
func (idx *Index) Add(ordinal int64, chunks []paper.Chunk) error {
	if err := idx.Validate(chunks); err != nil {
		return err
	}
	for _, c := range chunks {
		idx.byPaper[c.PaperID] = append(idx.byPaper[c.PaperID], len(idx.entries))
		idx.entries = append(idx.entries, Entry{Chunk: c, Ordinal: ordinal})
	}
	return nil
}

// Chunks returns the indexed chunks of a paper in sequence order.
func (idx *Index) Chunks(paperID string) []paper.Chunk {
	positions := idx.byPaper[paperID]
	chunks := make([]paper.Chunk, 0, len(positions))
	for _, pos := range positions {
		chunks = append(chunks, idx.entries[pos].Chunk)
	}
	sortBySeq(chunks)
	return chunks
}
