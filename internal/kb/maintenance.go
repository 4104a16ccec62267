package kb

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scholarkb/scholarkb/internal/paper"
	"github.com/scholarkb/scholarkb/internal/storage"
	"github.com/scholarkb/scholarkb/internal/vectorindex"
)

// RebuildStats describes a completed rebuild.
type RebuildStats struct {
	Papers   int           `json:"papers"`
	Chunks   int           `json:"chunks"`
	Model    string        `json:"model"`
	Duration time.Duration `json:"duration_ns"`
}

// Rebuild re-embeds every stored chunk with the configured embedder,
// replaces the stored vectors and swaps in a fresh index. It clears the
// stale state left by a model change.
func (k *KnowledgeBase) Rebuild(ctx context.Context) (*RebuildStats, error) {
	start := time.Now()

	records, err := k.db.LoadChunks()
	if err != nil {
		return nil, err
	}
	chunks := make([]paper.Chunk, len(records))
	for i, r := range records {
		chunks[i] = r.Chunk
	}

	k.logger.WithFields(logrus.Fields{
		"chunks": len(chunks),
		"model":  k.embedder.ModelName(),
	}).Info("rebuilding index")

	if err := k.embedChunks(ctx, chunks); err != nil {
		return nil, fmt.Errorf("re-embedding chunks: %w", err)
	}
	for i := range records {
		records[i].Embedding = chunks[i].Embedding
	}

	index := vectorindex.New(k.embedder.ModelName(), k.embedder.Dimensions())
	if err := addRecords(index, records); err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.db.ReplaceEmbeddings(chunks, k.embedder.ModelName(), k.embedder.Dimensions()); err != nil {
		return nil, err
	}

	// Papers committed while re-embedding already carry current vectors.
	rebuilt := make(map[string]bool)
	for _, r := range records {
		rebuilt[r.PaperID] = true
	}
	for _, rec := range k.papers {
		if !rebuilt[rec.ID] {
			if err := index.Add(rec.Ordinal, k.index.Chunks(rec.ID)); err != nil {
				return nil, fmt.Errorf("carrying over %s: %w", rec.ID, err)
			}
		}
	}

	k.index = index
	k.stale = false
	k.storedChunks = index.Len()

	return &RebuildStats{
		Papers:   index.Papers(),
		Chunks:   index.Len(),
		Model:    k.embedder.ModelName(),
		Duration: time.Since(start),
	}, nil
}

// Compact removes stored chunks that no longer belong to a registered paper
// and returns how many were removed.
func (k *KnowledgeBase) Compact() (int, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	removed, err := k.db.Compact()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		k.logger.WithField("removed", removed).Info("removed orphan chunks")
	}
	return removed, nil
}

// CheckReport combines the stored index report with the in-memory state.
type CheckReport struct {
	storage.IndexReport
	Loaded int    `json:"loaded_chunks"`
	Model  string `json:"configured_model"`
	Stale  bool   `json:"stale"`
}

// Healthy reports whether the stored index is consistent and fully loaded.
func (r *CheckReport) Healthy() bool {
	return r.IndexReport.Healthy() && !r.Stale && r.Loaded == r.Chunks
}

// Check inspects the stored index for inconsistencies.
func (k *KnowledgeBase) Check() (*CheckReport, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	report, err := k.db.Check()
	if err != nil {
		return nil, err
	}
	return &CheckReport{
		IndexReport: *report,
		Loaded:      k.index.Len(),
		Model:       k.embedder.ModelName(),
		Stale:       k.stale,
	}, nil
}
