package kb

import (
	"context"
	"fmt"

	"github.com/scholarkb/scholarkb/internal/embedding"
	"github.com/scholarkb/scholarkb/internal/paper"
	"github.com/scholarkb/scholarkb/internal/storage"
	"github.com/scholarkb/scholarkb/internal/vectorindex"
)

// TopKeywordCount is the number of keywords reported by Stats.
const TopKeywordCount = 5

// SearchHit is a retrieved chunk with its owning paper's title and its score.
type SearchHit struct {
	Chunk   paper.Chunk `json:"chunk"`
	Title   string      `json:"title"`
	Score   float32     `json:"score"`
	Ordinal int64       `json:"-"`
}

// Stats summarizes the corpus.
type Stats struct {
	TotalPapers int                  `json:"total_papers"`
	TotalChunks int                  `json:"total_chunks"`
	TopKeywords []paper.KeywordCount `json:"top_keywords"`
}

// Search returns the k chunks most similar to query across the corpus,
// ordered by score descending with ties broken by ingestion order and then
// chunk sequence. The result has min(max(k, 0), total chunks) hits. An empty
// index returns no hits without embedding the query.
func (k *KnowledgeBase) Search(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	return k.search(ctx, query, limit, "")
}

// SearchPaper is Search restricted to the chunks of one paper.
func (k *KnowledgeBase) SearchPaper(ctx context.Context, paperID, query string, limit int) ([]SearchHit, error) {
	return k.search(ctx, query, limit, paperID)
}

// search scores the whole index, or only paperID's chunks when it is non-empty.
func (k *KnowledgeBase) search(ctx context.Context, query string, limit int, paperID string) ([]SearchHit, error) {
	k.mu.RLock()
	stale := k.stale
	candidates := k.index.Len()
	if paperID != "" {
		candidates = len(k.index.Chunks(paperID))
	}
	k.mu.RUnlock()

	if stale {
		return nil, storage.ErrModelMismatch
	}
	if candidates == 0 || limit <= 0 {
		return []SearchHit{}, nil
	}

	emb, err := k.queryEmbedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if emb.Dimensions() != k.embedder.Dimensions() {
		return nil, fmt.Errorf("embedding query: %w: got %d, want %d",
			embedding.ErrDimensionMismatch, emb.Dimensions(), k.embedder.Dimensions())
	}

	k.mu.RLock()
	defer k.mu.RUnlock()

	var found []vectorindex.Hit
	if paperID == "" {
		found = k.index.Search(emb.Vector, limit)
	} else {
		found = k.index.SearchPaper(paperID, emb.Vector, limit)
	}
	hits := make([]SearchHit, len(found))
	for i, h := range found {
		hits[i] = SearchHit{
			Chunk:   h.Chunk,
			Title:   k.papers[k.byID[h.Chunk.PaperID]].Title,
			Score:   h.Score,
			Ordinal: h.Ordinal,
		}
	}
	return hits, nil
}

// ListPapers returns all papers in ingestion order.
func (k *KnowledgeBase) ListPapers() []paper.Paper {
	k.mu.RLock()
	defer k.mu.RUnlock()

	papers := make([]paper.Paper, len(k.papers))
	for i, rec := range k.papers {
		papers[i] = rec.Paper
	}
	return papers
}

// GetPaper returns the paper with the given ID.
func (k *KnowledgeBase) GetPaper(id string) (paper.Paper, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	i, ok := k.byID[id]
	if !ok {
		return paper.Paper{}, false
	}
	return k.papers[i].Paper, true
}

// FindByTitle returns the earliest-ingested paper whose title equals title exactly.
func (k *KnowledgeBase) FindByTitle(title string) (paper.Paper, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	for _, rec := range k.papers {
		if rec.Title == title {
			return rec.Paper, true
		}
	}
	return paper.Paper{}, false
}

// PaperChunks returns the indexed chunks of a paper in sequence order.
func (k *KnowledgeBase) PaperChunks(id string) []paper.Chunk {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.index.Chunks(id)
}

// KeywordFrequencies returns the full keyword frequency list, lowercased,
// sorted by count descending then keyword ascending.
func (k *KnowledgeBase) KeywordFrequencies() []paper.KeywordCount {
	return paper.KeywordFrequencies(k.ListPapers())
}

// Stats returns corpus totals and the most frequent keywords.
func (k *KnowledgeBase) Stats() Stats {
	k.mu.RLock()
	defer k.mu.RUnlock()

	papers := make([]paper.Paper, len(k.papers))
	for i, rec := range k.papers {
		papers[i] = rec.Paper
	}
	top := paper.KeywordFrequencies(papers)
	if len(top) > TopKeywordCount {
		top = top[:TopKeywordCount]
	}
	return Stats{
		TotalPapers: len(k.papers),
		TotalChunks: k.storedChunks,
		TopKeywords: top,
	}
}

// Model returns the embedding model name and dimensions of the index.
func (k *KnowledgeBase) Model() (string, int) {
	return k.embedder.ModelName(), k.embedder.Dimensions()
}
