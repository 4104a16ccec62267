package kb

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/scholarkb/scholarkb/internal/embedding"
	"github.com/scholarkb/scholarkb/internal/paper"
	"github.com/scholarkb/scholarkb/internal/pdf"
	"github.com/scholarkb/scholarkb/internal/storage"
)

var errNoChunks = errors.New("document produced no chunks")

// AddPaper ingests the file at path: parse, extract metadata, chunk, check
// for duplicates, embed and commit. Either the paper and all of its chunks
// become visible together, or nothing is stored and an *IngestionError is
// returned.
func (k *KnowledgeBase) AddPaper(ctx context.Context, path string) (*paper.Paper, error) {
	log := k.logger.WithFields(logrus.Fields{"run_id": uuid.NewString(), "path": path})

	if k.isStale() {
		return nil, &IngestionError{Stage: StageIndex, Path: path, Err: storage.ErrModelMismatch}
	}

	doc, err := pdf.Parse(path)
	if err != nil {
		return nil, &IngestionError{Stage: StageParse, Path: path, Err: err}
	}

	res := k.extractor.Extract(ctx, doc)
	if res.IsDegraded() {
		log.WithField("reason", res.Reason).Warn("metadata extraction degraded, using filename as title")
	}

	fingerprint := paper.Fingerprint(doc.Text)
	id := paper.IDFromFingerprint(fingerprint)
	log = log.WithField("paper_id", id)

	chunks := k.chunker.Split(id, doc.Text)
	if len(chunks) == 0 {
		return nil, &IngestionError{Stage: StageChunk, Path: path, Err: errNoChunks}
	}

	if k.hasFingerprint(fingerprint) {
		return nil, &IngestionError{Stage: StageDuplicate, Path: path, Err: ErrDuplicate}
	}

	log.WithField("chunks", len(chunks)).Debug("embedding chunks")
	if err := k.embedChunks(ctx, chunks); err != nil {
		return nil, &IngestionError{Stage: StageEmbed, Path: path, Err: err}
	}

	m := res.Metadata
	p := paper.Paper{
		ID:             id,
		Fingerprint:    fingerprint,
		Title:          m.Title,
		Authors:        m.Authors,
		Year:           m.Year,
		Venue:          m.Venue,
		Abstract:       m.Abstract,
		Keywords:       paper.NormalizeKeywords(m.Keywords),
		DOI:            m.DOI,
		SourcePath:     path,
		AddedAt:        k.now().UTC(),
		MetadataSource: res.Source,
	}
	if p.Authors == nil {
		p.Authors = []string{}
	}

	if err := k.commit(p, chunks); err != nil {
		return nil, &IngestionError{Stage: stageForCommit(err), Path: path, Err: err}
	}

	log.WithFields(logrus.Fields{
		"title":           p.Title,
		"chunks":          len(chunks),
		"metadata_source": p.MetadataSource,
	}).Info("paper ingested")
	return &p, nil
}

// AddResult is the outcome of ingesting one file.
type AddResult struct {
	Path  string       `json:"path"`
	Paper *paper.Paper `json:"paper,omitempty"`
	Err   error        `json:"-"`
}

// AddPapers ingests files one after another. A failure for one file does not
// stop the others; cancellation does.
func (k *KnowledgeBase) AddPapers(ctx context.Context, paths []string) []AddResult {
	results := make([]AddResult, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			results = append(results, AddResult{Path: path, Err: err})
			continue
		}
		p, err := k.AddPaper(ctx, path)
		results = append(results, AddResult{Path: path, Paper: p, Err: err})
	}
	return results
}

// embedChunks fills in the embedding of every chunk, in parallel.
func (k *KnowledgeBase) embedChunks(ctx context.Context, chunks []paper.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(k.concurrency)

	var done atomic.Int64
	total := len(chunks)
	dims := k.embedder.Dimensions()

	for i := range chunks {
		g.Go(func() error {
			emb, err := k.embedder.Embed(gctx, chunks[i].Text)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", chunks[i].Seq, err)
			}
			if emb.Dimensions() != dims {
				return fmt.Errorf("chunk %d: %w: got %d, want %d", chunks[i].Seq, embedding.ErrDimensionMismatch, emb.Dimensions(), dims)
			}
			chunks[i].Embedding = emb.Vector
			if k.progress != nil {
				k.progress.OnProgress(int(done.Add(1)), total)
			}
			return nil
		})
	}
	return g.Wait()
}

// commit persists the paper and publishes it to readers under the write lock.
func (k *KnowledgeBase) commit(p paper.Paper, chunks []paper.Chunk) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.stale {
		return storage.ErrModelMismatch
	}
	if k.fingerprints[p.Fingerprint] {
		return ErrDuplicate
	}
	if err := k.index.Validate(chunks); err != nil {
		return err
	}

	ordinal, err := k.db.CommitPaper(p, chunks)
	if err != nil {
		if errors.Is(err, storage.ErrFingerprintExists) {
			return ErrDuplicate
		}
		return err
	}
	if err := k.index.Add(ordinal, chunks); err != nil {
		// Cannot fail after Validate.
		return err
	}

	k.byID[p.ID] = len(k.papers)
	k.papers = append(k.papers, storage.PaperRecord{Paper: p, Ordinal: ordinal})
	k.fingerprints[p.Fingerprint] = true
	k.storedChunks += len(chunks)
	return nil
}

func stageForCommit(err error) Stage {
	if IsDuplicate(err) {
		return StageDuplicate
	}
	return StageIndex
}

func (k *KnowledgeBase) hasFingerprint(fingerprint string) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.fingerprints[fingerprint]
}

func (k *KnowledgeBase) isStale() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.stale
}
