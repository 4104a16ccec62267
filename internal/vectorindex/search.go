package vectorindex

import (
	"math"
	"sort"

	"github.com/scholarkb/scholarkb/internal/paper"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	denominator := float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB)))
	if denominator == 0 {
		return 0
	}

	return dot / denominator
}

// Search returns the k chunks most similar to query.
// The result has exactly min(max(k, 0), Len()) hits, ordered by score
// descending, then paper ordinal ascending, then chunk sequence ascending.
func (idx *Index) Search(query []float32, k int) []Hit {
	return topK(idx.score(query, idx.entries), k)
}

// SearchPaper is Search restricted to the chunks of one paper.
func (idx *Index) SearchPaper(paperID string, query []float32, k int) []Hit {
	positions := idx.byPaper[paperID]
	entries := make([]Entry, 0, len(positions))
	for _, pos := range positions {
		entries = append(entries, idx.entries[pos])
	}
	return topK(idx.score(query, entries), k)
}

func (idx *Index) score(query []float32, entries []Entry) []Hit {
	hits := make([]Hit, len(entries))
	for i, e := range entries {
		hits[i] = Hit{Chunk: e.Chunk, Ordinal: e.Ordinal, Score: CosineSimilarity(query, e.Chunk.Embedding)}
	}
	return hits
}

func topK(hits []Hit, k int) []Hit {
	if k <= 0 {
		return []Hit{}
	}
	sort.SliceStable(hits, func(i, j int) bool { return Less(hits[i], hits[j]) })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Less reports whether a ranks before b.
func Less(a, b Hit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Ordinal != b.Ordinal {
		return a.Ordinal < b.Ordinal
	}
	return a.Chunk.Seq < b.Chunk.Seq
}

func sortBySeq(chunks []paper.Chunk) {
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Seq < chunks[j].Seq })
}
