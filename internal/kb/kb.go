// Package kb is the knowledge base: it ingests papers into a persistent
// registry and vector index and answers similarity queries over them.
package kb

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/scholarkb/scholarkb/internal/chunk"
	"github.com/scholarkb/scholarkb/internal/embedding"
	"github.com/scholarkb/scholarkb/internal/logging"
	"github.com/scholarkb/scholarkb/internal/metadata"
	"github.com/scholarkb/scholarkb/internal/paper"
	"github.com/scholarkb/scholarkb/internal/storage"
	"github.com/scholarkb/scholarkb/internal/vectorindex"
)

// DefaultConcurrency is the default number of chunks embedded in parallel.
const DefaultConcurrency = 4

// KnowledgeBase owns the registry database and the in-memory vector index.
//
// Readers take a read lock and always observe either all or none of a
// paper's registry entry and chunks. Embedding runs outside the lock, so
// ingestions of different papers proceed concurrently; only the commit is
// serialized.
type KnowledgeBase struct {
	db            *storage.DB
	embedder      embedding.Provider
	queryEmbedder embedding.Provider
	extractor     metadata.Extractor
	chunker       *chunk.Chunker
	concurrency   int
	allowStale    bool
	progress      ProgressReporter
	logger        logrus.FieldLogger
	now           func() time.Time

	mu           sync.RWMutex
	index        *vectorindex.Index
	papers       []storage.PaperRecord
	byID         map[string]int
	fingerprints map[string]bool
	storedChunks int
	stale        bool
}

// Option configures a KnowledgeBase.
type Option func(*KnowledgeBase)

// WithExtractor sets the metadata extractor (default: heuristic).
func WithExtractor(e metadata.Extractor) Option {
	return func(k *KnowledgeBase) {
		if e != nil {
			k.extractor = e
		}
	}
}

// WithChunker sets the chunker (default: 1000-byte windows with 200 bytes overlap).
func WithChunker(c *chunk.Chunker) Option {
	return func(k *KnowledgeBase) {
		if c != nil {
			k.chunker = c
		}
	}
}

// WithQueryEmbedder sets the provider used for search queries. It must
// produce vectors compatible with the document embedder. The default caches
// the document embedder.
func WithQueryEmbedder(p embedding.Provider) Option {
	return func(k *KnowledgeBase) {
		if p != nil {
			k.queryEmbedder = p
		}
	}
}

// WithConcurrency sets how many chunks are embedded in parallel.
func WithConcurrency(n int) Option {
	return func(k *KnowledgeBase) {
		if n > 0 {
			k.concurrency = n
		}
	}
}

// WithProgress sets a reporter for chunk embedding progress.
func WithProgress(p ProgressReporter) Option {
	return func(k *KnowledgeBase) {
		k.progress = p
	}
}

// WithLogger sets the logger (default: discard).
func WithLogger(l logrus.FieldLogger) Option {
	return func(k *KnowledgeBase) {
		k.logger = logging.OrDiscard(l)
	}
}

// AllowStale opens a database whose vectors were built with a different
// embedding model. Registry reads work, but searches and ingestion fail with
// storage.ErrModelMismatch until Rebuild succeeds.
func AllowStale() Option {
	return func(k *KnowledgeBase) {
		k.allowStale = true
	}
}

// Open opens or creates the knowledge base stored at dbPath and loads its
// vectors into memory. If the stored vectors were built with a different
// model than embedder, Open fails with storage.ErrModelMismatch unless
// AllowStale is given.
func Open(dbPath string, embedder embedding.Provider, opts ...Option) (*KnowledgeBase, error) {
	k := &KnowledgeBase{
		embedder:    embedder,
		extractor:   metadata.NewHeuristic(),
		chunker:     chunk.New(),
		concurrency: DefaultConcurrency,
		logger:      logging.Discard(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.queryEmbedder == nil {
		k.queryEmbedder = embedding.NewCached(embedder, embedding.DefaultCacheTTL)
	}

	db, err := storage.OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	k.db = db

	if err := db.EnsureIndexMeta(embedder.ModelName(), embedder.Dimensions()); err != nil {
		if !errors.Is(err, storage.ErrModelMismatch) || !k.allowStale {
			db.Close()
			return nil, err
		}
		k.stale = true
		k.logger.WithError(err).Warn("index is stale, rebuild required")
	}

	if err := k.load(); err != nil {
		db.Close()
		return nil, err
	}
	return k, nil
}

// Close releases the database handle.
func (k *KnowledgeBase) Close() error {
	return k.db.Close()
}

// load reads the registry and, unless stale, all stored vectors.
func (k *KnowledgeBase) load() error {
	papers, err := k.db.ListPapers()
	if err != nil {
		return fmt.Errorf("loading papers: %w", err)
	}
	stored, err := k.db.CountChunks()
	if err != nil {
		return fmt.Errorf("counting chunks: %w", err)
	}

	index := vectorindex.New(k.embedder.ModelName(), k.embedder.Dimensions())
	if !k.stale {
		records, err := k.db.LoadChunks()
		if err != nil {
			return err
		}
		if err := addRecords(index, records); err != nil {
			return fmt.Errorf("loading vectors: %w", err)
		}
	}

	k.papers = papers
	k.byID = make(map[string]int, len(papers))
	k.fingerprints = make(map[string]bool, len(papers))
	for i, p := range papers {
		k.byID[p.ID] = i
		k.fingerprints[p.Fingerprint] = true
	}
	k.index = index
	k.storedChunks = stored

	k.logger.WithFields(logrus.Fields{
		"papers": len(papers),
		"chunks": index.Len(),
		"model":  k.embedder.ModelName(),
	}).Debug("knowledge base loaded")
	return nil
}

// addRecords adds chunk records, which arrive grouped by paper, to index.
func addRecords(index *vectorindex.Index, records []storage.ChunkRecord) error {
	for start := 0; start < len(records); {
		end := start
		for end < len(records) && records[end].PaperID == records[start].PaperID {
			end++
		}
		group := make([]paper.Chunk, 0, end-start)
		for _, r := range records[start:end] {
			group = append(group, r.Chunk)
		}
		if err := index.Add(records[start].Ordinal, group); err != nil {
			return err
		}
		start = end
	}
	return nil
}
