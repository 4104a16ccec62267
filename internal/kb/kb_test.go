package kb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/scholarkb/scholarkb/internal/chunk"
	"github.com/scholarkb/scholarkb/internal/embedding"
	"github.com/scholarkb/scholarkb/internal/paper"
	"github.com/scholarkb/scholarkb/internal/pdf"
	"github.com/scholarkb/scholarkb/internal/storage"
)

const attentionPaper = `Attention Is All You Need
Ashish Vaswani, Noam Shazeer
Neural Information Processing Systems 2017

Abstract
The dominant sequence transduction models are based on recurrent networks. We propose the
Transformer, a model architecture based solely on attention mechanisms.

Keywords: transformer, attention, machine translation

1 Introduction
Recurrent models factor computation along symbol positions. The transformer allows
significantly more parallelization and reaches a new state of the art in translation quality.
Self-attention relates different positions of a single sequence in order to compute a representation.
`

const bertPaper = `BERT: Pre-training of Deep Bidirectional Transformers
Jacob Devlin, Ming-Wei Chang
North American Chapter of the Association for Computational Linguistics 2019

Abstract
We introduce BERT, a language representation model pre-trained on unlabeled text.

Keywords: language models, pre-training, attention

1 Introduction
Language model pre-training has been shown to be effective for many natural language tasks.
`

const resnetPaper = `Deep Residual Learning for Image Recognition
Kaiming He, Xiangyu Zhang
Conference on Computer Vision and Pattern Recognition 2016

Abstract
Deeper neural networks are more difficult to train. We present a residual learning framework.

Keywords: residual networks, image recognition

1 Introduction
Deep convolutional neural networks have led to a series of breakthroughs for image classification.
`

// countingProvider wraps a provider, counting calls and optionally failing.
type countingProvider struct {
	embedding.Provider
	calls atomic.Int64
	fail  error
}

func (p *countingProvider) Embed(ctx context.Context, text string) (embedding.Embedding, error) {
	p.calls.Add(1)
	if p.fail != nil {
		return embedding.Embedding{}, p.fail
	}
	return p.Provider.Embed(ctx, text)
}

func newProvider() *countingProvider {
	return &countingProvider{Provider: embedding.NewHashProvider(64)}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// openTestKB opens a knowledge base in a temp directory with small chunks.
func openTestKB(t *testing.T, provider embedding.Provider, opts ...Option) (*KnowledgeBase, string) {
	t.Helper()
	dir := t.TempDir()
	opts = append([]Option{
		WithChunker(chunk.New(chunk.WithSize(200), chunk.WithOverlap(40))),
		WithQueryEmbedder(provider),
	}, opts...)
	k, err := Open(filepath.Join(dir, "kb.db"), provider, opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { k.Close() })
	return k, dir
}

func TestAddPaper_ScenarioA(t *testing.T) {
	k, dir := openTestKB(t, newProvider())
	ctx := context.Background()

	p, err := k.AddPaper(ctx, writeFile(t, dir, "attention.txt", attentionPaper))
	if err != nil {
		t.Fatalf("AddPaper() error = %v", err)
	}
	if p.Title != "Attention Is All You Need" || p.MetadataSource != paper.MetadataExtracted {
		t.Errorf("paper = %+v", p)
	}
	if k.Stats().TotalPapers != 1 {
		t.Errorf("TotalPapers = %d, want 1", k.Stats().TotalPapers)
	}

	hits, err := k.Search(ctx, "transformer", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("Search() returned no hits")
	}
	found := false
	for _, h := range hits {
		if h.Title == "Attention Is All You Need" {
			found = true
		}
	}
	if !found {
		t.Error("no hit from the ingested paper")
	}
}

func TestAddPaper_RoundTrip(t *testing.T) {
	k, dir := openTestKB(t, newProvider())
	ctx := context.Background()

	texts := map[string]string{"attention.txt": attentionPaper, "bert.md": bertPaper, "resnet.txt": resnetPaper}
	names := []string{"attention.txt", "bert.md", "resnet.txt"}
	for i, name := range names {
		before := k.Stats().TotalPapers
		p, err := k.AddPaper(ctx, writeFile(t, dir, name, texts[name]))
		if err != nil {
			t.Fatalf("AddPaper(%s) error = %v", name, err)
		}
		if got := k.Stats().TotalPapers; got != before+1 {
			t.Errorf("TotalPapers = %d, want %d", got, before+1)
		}

		matches := 0
		for _, listed := range k.ListPapers() {
			if listed.Title == p.Title {
				matches++
			}
		}
		if matches != 1 {
			t.Errorf("ListPapers() has %d entries titled %q, want 1", matches, p.Title)
		}
		if papers := k.ListPapers(); papers[i].ID != p.ID {
			t.Errorf("ListPapers()[%d] = %s, want ingestion order", i, papers[i].Title)
		}
	}

	p, ok := k.FindByTitle("Deep Residual Learning for Image Recognition")
	if !ok {
		t.Fatal("FindByTitle() did not find resnet")
	}
	if got, ok := k.GetPaper(p.ID); !ok || got.Title != p.Title {
		t.Errorf("GetPaper(%s) = %+v, %v", p.ID, got, ok)
	}
	chunks := k.PaperChunks(p.ID)
	if len(chunks) == 0 {
		t.Fatal("PaperChunks() is empty")
	}
	for i, c := range chunks {
		if c.Seq != i || c.PaperID != p.ID {
			t.Errorf("chunk %d = %s/%d", i, c.PaperID, c.Seq)
		}
	}
	if _, ok := k.FindByTitle("deep residual learning for image recognition"); ok {
		t.Error("FindByTitle should match exactly")
	}
}

func TestAddPaper_DuplicateScenarioD(t *testing.T) {
	k, dir := openTestKB(t, newProvider())
	ctx := context.Background()
	path := writeFile(t, dir, "attention.txt", attentionPaper)

	if _, err := k.AddPaper(ctx, path); err != nil {
		t.Fatalf("first AddPaper() error = %v", err)
	}
	chunksBefore := k.Stats().TotalChunks

	tests := []struct {
		name string
		path string
	}{
		{"same path", path},
		{"same content, other file", writeFile(t, dir, "copy.md", "  "+strings.ToUpper(attentionPaper))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.AddPaper(ctx, tt.path)
			if !IsDuplicate(err) {
				t.Fatalf("AddPaper() error = %v, want duplicate", err)
			}
			if StageOf(err) != StageDuplicate {
				t.Errorf("stage = %s, want duplicate", StageOf(err))
			}
			stats := k.Stats()
			if stats.TotalPapers != 1 || stats.TotalChunks != chunksBefore {
				t.Errorf("stats = %+v, want registry unchanged", stats)
			}
		})
	}
}

func TestAddPaper_DuplicateSkipsEmbedding(t *testing.T) {
	provider := newProvider()
	k, dir := openTestKB(t, provider)
	path := writeFile(t, dir, "attention.txt", attentionPaper)

	k.AddPaper(context.Background(), path)
	calls := provider.calls.Load()
	k.AddPaper(context.Background(), path)
	if provider.calls.Load() != calls {
		t.Error("duplicate ingestion should not embed")
	}
}

func TestAddPaper_Failures(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name      string
		path      string
		fail      error
		wantStage Stage
		wantErr   error
	}{
		{"unsupported format", writeFile(t, dir, "paper.docx", "text"), nil, StageParse, pdf.ErrUnsupportedFormat},
		{"missing file", filepath.Join(dir, "missing.txt"), nil, StageParse, os.ErrNotExist},
		{"no text", writeFile(t, dir, "blank.txt", " \n\t "), nil, StageParse, pdf.ErrNoText},
		{"embedding fails", writeFile(t, dir, "attention.txt", attentionPaper), errors.New("connection refused"), StageEmbed, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newProvider()
			provider.fail = tt.fail
			k, _ := openTestKB(t, provider)

			p, err := k.AddPaper(context.Background(), tt.path)
			if p != nil {
				t.Errorf("AddPaper() returned paper %+v on failure", p)
			}
			var ingErr *IngestionError
			if !errors.As(err, &ingErr) {
				t.Fatalf("expected *IngestionError, got %v", err)
			}
			if ingErr.Stage != tt.wantStage || ingErr.Path != tt.path {
				t.Errorf("got stage %s path %s, want %s %s", ingErr.Stage, ingErr.Path, tt.wantStage, tt.path)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}

			stats := k.Stats()
			if stats.TotalPapers != 0 || stats.TotalChunks != 0 {
				t.Errorf("stats = %+v, want nothing stored", stats)
			}
			if report, _ := k.Check(); report.Papers != 0 || report.Chunks != 0 {
				t.Errorf("database holds %d papers, %d chunks after failure", report.Papers, report.Chunks)
			}
		})
	}
}

func TestAddPaper_DegradedMetadata(t *testing.T) {
	k, dir := openTestKB(t, newProvider())
	path := writeFile(t, dir, "scan-0042.txt", "0042 1337 9001\n\n2718 3141 1618\n")

	p, err := k.AddPaper(context.Background(), path)
	if err != nil {
		t.Fatalf("AddPaper() error = %v", err)
	}
	if p.Title != "scan-0042" || p.MetadataSource != paper.MetadataDegraded {
		t.Errorf("paper = %+v, want degraded filename title", p)
	}
}

func TestAddPaper_Progress(t *testing.T) {
	var mu sync.Mutex
	var calls, lastTotal int
	progress := ProgressFunc(func(current, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		lastTotal = total
	})

	k, dir := openTestKB(t, newProvider(), WithProgress(progress), WithConcurrency(2))
	if _, err := k.AddPaper(context.Background(), writeFile(t, dir, "a.txt", attentionPaper)); err != nil {
		t.Fatal(err)
	}
	if calls != k.Stats().TotalChunks || lastTotal != calls {
		t.Errorf("progress called %d times (total %d), want %d", calls, lastTotal, k.Stats().TotalChunks)
	}
}

func TestAddPapers(t *testing.T) {
	k, dir := openTestKB(t, newProvider())
	paths := []string{
		writeFile(t, dir, "a.txt", attentionPaper),
		writeFile(t, dir, "bad.pdf", "not a pdf"),
		writeFile(t, dir, "b.txt", bertPaper),
	}

	results := k.AddPapers(context.Background(), paths)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("unexpected errors: %v, %v", results[0].Err, results[2].Err)
	}
	if StageOf(results[1].Err) != StageParse {
		t.Errorf("bad.pdf error = %v, want parse failure", results[1].Err)
	}
	if k.Stats().TotalPapers != 2 {
		t.Errorf("TotalPapers = %d, want 2", k.Stats().TotalPapers)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, r := range k.AddPapers(ctx, []string{paths[0]}) {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("cancelled AddPapers error = %v", r.Err)
		}
	}
}

func TestSearch_Bound(t *testing.T) {
	k, dir := openTestKB(t, newProvider())
	ctx := context.Background()
	k.AddPaper(ctx, writeFile(t, dir, "a.txt", attentionPaper))
	k.AddPaper(ctx, writeFile(t, dir, "b.txt", bertPaper))
	total := k.Stats().TotalChunks

	for _, limit := range []int{-3, 0, 1, 2, total - 1, total, total + 10} {
		t.Run(fmt.Sprintf("k=%d", limit), func(t *testing.T) {
			hits, err := k.Search(ctx, "attention mechanisms", limit)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			want := limit
			if want < 0 {
				want = 0
			}
			if want > total {
				want = total
			}
			if len(hits) != want {
				t.Errorf("len = %d, want %d", len(hits), want)
			}
			for i := 1; i < len(hits); i++ {
				if hits[i].Score > hits[i-1].Score {
					t.Errorf("score increases at %d", i)
				}
			}
		})
	}
}

func TestSearch_EmptyCorpus(t *testing.T) {
	provider := newProvider()
	k, _ := openTestKB(t, provider)

	hits, err := k.Search(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("Search() = %v, want empty slice", hits)
	}
	if provider.calls.Load() != 0 {
		t.Error("empty index should not embed the query")
	}
}

func TestSearchPaper(t *testing.T) {
	k, dir := openTestKB(t, newProvider())
	ctx := context.Background()
	a, _ := k.AddPaper(ctx, writeFile(t, dir, "a.txt", attentionPaper))
	k.AddPaper(ctx, writeFile(t, dir, "b.txt", bertPaper))

	hits, err := k.SearchPaper(ctx, a.ID, "language model pre-training", 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != len(k.PaperChunks(a.ID)) {
		t.Errorf("got %d hits, want all %d chunks of the paper", len(hits), len(k.PaperChunks(a.ID)))
	}
	for _, h := range hits {
		if h.Chunk.PaperID != a.ID {
			t.Errorf("hit from %s", h.Chunk.PaperID)
		}
	}

	if hits, _ := k.SearchPaper(ctx, "unknown", "x", 5); len(hits) != 0 {
		t.Errorf("unknown paper returned %d hits", len(hits))
	}
}

func TestKeywordStatsConsistency(t *testing.T) {
	k, dir := openTestKB(t, newProvider())
	ctx := context.Background()
	for name, text := range map[string]string{"a.txt": attentionPaper, "b.txt": bertPaper, "c.txt": resnetPaper} {
		if _, err := k.AddPaper(ctx, writeFile(t, dir, name, text)); err != nil {
			t.Fatal(err)
		}
	}

	pairs := 0
	for _, p := range k.ListPapers() {
		pairs += len(p.Keywords)
	}
	sum := 0
	for _, kc := range k.KeywordFrequencies() {
		sum += kc.Count
	}
	if sum != pairs {
		t.Errorf("keyword frequency sum = %d, want %d (paper, keyword) pairs", sum, pairs)
	}

	top := k.Stats().TopKeywords
	if len(top) != TopKeywordCount {
		t.Fatalf("TopKeywords has %d entries, want %d", len(top), TopKeywordCount)
	}
	if top[0].Keyword != "attention" || top[0].Count != 2 {
		t.Errorf("top keyword = %+v, want attention x2", top[0])
	}
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "kb.db")
	ctx := context.Background()

	small := WithChunker(chunk.New(chunk.WithSize(200), chunk.WithOverlap(40)))
	k, err := Open(dbPath, newProvider(), small)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := k.AddPaper(ctx, writeFile(t, dir, "a.txt", attentionPaper)); err != nil {
		t.Fatal(err)
	}
	chunks := k.Stats().TotalChunks
	k.Close()

	t.Run("same model loads vectors", func(t *testing.T) {
		provider := newProvider()
		k, err := Open(dbPath, provider)
		if err != nil {
			t.Fatal(err)
		}
		defer k.Close()

		hits, err := k.Search(ctx, "transformer", 2)
		if err != nil || len(hits) != 2 {
			t.Fatalf("Search() = %d hits, %v", len(hits), err)
		}
		if provider.calls.Load() != 1 {
			t.Errorf("embed calls = %d, want only the query", provider.calls.Load())
		}
		if k.Stats().TotalChunks != chunks {
			t.Errorf("TotalChunks = %d, want %d", k.Stats().TotalChunks, chunks)
		}
	})

	t.Run("different model is stale", func(t *testing.T) {
		other := embedding.NewHashProvider(32)
		if _, err := Open(dbPath, other); !errors.Is(err, storage.ErrModelMismatch) {
			t.Fatalf("Open() error = %v, want ErrModelMismatch", err)
		}

		k, err := Open(dbPath, other, AllowStale())
		if err != nil {
			t.Fatal(err)
		}
		defer k.Close()

		if len(k.ListPapers()) != 1 {
			t.Error("registry should load while stale")
		}
		if _, err := k.Search(ctx, "transformer", 2); !errors.Is(err, storage.ErrModelMismatch) {
			t.Errorf("Search() error = %v, want ErrModelMismatch", err)
		}
		_, err = k.AddPaper(ctx, writeFile(t, dir, "b.txt", bertPaper))
		if StageOf(err) != StageIndex || !errors.Is(err, storage.ErrModelMismatch) {
			t.Errorf("AddPaper() error = %v, want stale index failure", err)
		}
		if report, _ := k.Check(); report.Healthy() || !report.Stale {
			t.Errorf("Check() = %+v, want stale", report)
		}

		stats, err := k.Rebuild(ctx)
		if err != nil {
			t.Fatalf("Rebuild() error = %v", err)
		}
		if stats.Chunks != chunks || stats.Papers != 1 || stats.Model != "hash-32" {
			t.Errorf("Rebuild() = %+v", stats)
		}
		if hits, err := k.Search(ctx, "transformer", 2); err != nil || len(hits) != 2 {
			t.Errorf("Search() after rebuild = %d hits, %v", len(hits), err)
		}
		if report, _ := k.Check(); !report.Healthy() {
			t.Errorf("Check() after rebuild = %+v, want healthy", report)
		}
	})
}

func TestCompact(t *testing.T) {
	k, dir := openTestKB(t, newProvider())
	k.AddPaper(context.Background(), writeFile(t, dir, "a.txt", attentionPaper))

	removed, err := k.Compact()
	if err != nil || removed != 0 {
		t.Errorf("Compact() = %d, %v, want 0, nil", removed, err)
	}
	if report, _ := k.Check(); !report.Healthy() {
		t.Errorf("Check() = %+v, want healthy", report)
	}
}

func TestConcurrentIngestAndRead(t *testing.T) {
	k, dir := openTestKB(t, newProvider(), WithConcurrency(2))
	ctx := context.Background()
	paths := []string{
		writeFile(t, dir, "a.txt", attentionPaper),
		writeFile(t, dir, "b.txt", bertPaper),
		writeFile(t, dir, "c.txt", resnetPaper),
	}

	var wg sync.WaitGroup
	for _, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := k.AddPaper(ctx, path); err != nil {
				t.Errorf("AddPaper(%s) error = %v", path, err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			hits, err := k.Search(ctx, "neural networks", 100)
			if err != nil {
				t.Errorf("Search() error = %v", err)
				return
			}
			for _, h := range hits {
				if _, ok := k.GetPaper(h.Chunk.PaperID); !ok {
					t.Errorf("chunk of %s visible without its paper", h.Chunk.PaperID)
				}
			}
		}
	}()

	wg.Wait()
	<-done

	if k.Stats().TotalPapers != 3 {
		t.Errorf("TotalPapers = %d, want 3", k.Stats().TotalPapers)
	}
}
