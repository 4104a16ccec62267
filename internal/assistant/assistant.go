// Package assistant answers research queries over a knowledge base by
// retrieving relevant passages and grounding a generation backend on them.
package assistant

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/scholarkb/scholarkb/internal/generation"
	"github.com/scholarkb/scholarkb/internal/kb"
	"github.com/scholarkb/scholarkb/internal/logging"
	"github.com/scholarkb/scholarkb/internal/paper"
)

// KnowledgeBase is the read-only view of the corpus the assistant needs.
type KnowledgeBase interface {
	Search(ctx context.Context, query string, k int) ([]kb.SearchHit, error)
	SearchPaper(ctx context.Context, paperID, query string, k int) ([]kb.SearchHit, error)
	FindByTitle(title string) (paper.Paper, bool)
	PaperChunks(id string) []paper.Chunk
}

var _ KnowledgeBase = (*kb.KnowledgeBase)(nil)

// Source is a passage the assistant showed to the backend.
type Source struct {
	Index   int     `json:"index"`
	Title   string  `json:"title"`
	PaperID string  `json:"paper_id"`
	Seq     int     `json:"seq"`
	Section string  `json:"section,omitempty"`
	Score   float32 `json:"score"`
	Text    string  `json:"text"`
}

// Response is the result of a query.
type Response struct {
	Mode    Mode     `json:"mode"`
	Text    string   `json:"text"`
	Sources []Source `json:"sources"`
}

// Assistant runs queries against a knowledge base.
type Assistant struct {
	kb      KnowledgeBase
	backend generation.Backend
	logger  logrus.FieldLogger
}

// New creates an Assistant. A nil logger discards output.
func New(knowledge KnowledgeBase, backend generation.Backend, logger logrus.FieldLogger) *Assistant {
	return &Assistant{kb: knowledge, backend: backend, logger: logging.OrDiscard(logger)}
}

// Run dispatches q to the mode it names.
func (a *Assistant) Run(ctx context.Context, q Query) (*Response, error) {
	switch q.Mode {
	case ModeAsk:
		return a.Ask(ctx, q.Input)
	case ModeSummarize:
		title := q.Title
		if title == "" {
			title = q.Input
		}
		return a.Summarize(ctx, title)
	case ModeCompare:
		return a.Compare(ctx, q.Input)
	case ModeRelatedWork:
		return a.RelatedWork(ctx, q.Input)
	case ModeBrainstorm:
		return a.Brainstorm(ctx, q.Input)
	default:
		return nil, fmt.Errorf("unknown mode %q", q.Mode)
	}
}

// Ask answers a question from the most relevant passages in the corpus.
// With nothing indexed it returns NoKnowledgeMessage without generating.
func (a *Assistant) Ask(ctx context.Context, question string) (*Response, error) {
	hits, err := a.kb.Search(ctx, question, AskK)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return &Response{Mode: ModeAsk, Text: NoKnowledgeMessage, Sources: []Source{}}, nil
	}
	sources := sourcesFromHits(hits)
	return a.generate(ctx, ModeAsk, buildAskPrompt(question, sources), sources)
}

// Summarize produces a structured summary of the paper whose title matches exactly.
func (a *Assistant) Summarize(ctx context.Context, title string) (*Response, error) {
	p, ok := a.kb.FindByTitle(title)
	if !ok {
		return nil, &NotFoundError{Title: title}
	}

	chunks := a.kb.PaperChunks(p.ID)
	var sources []Source
	if len(chunks) <= SummarizeMaxChunks {
		sources = make([]Source, len(chunks))
		for i, c := range chunks {
			sources[i] = Source{Title: p.Title, PaperID: p.ID, Seq: c.Seq, Section: c.Section, Text: c.Text}
		}
	} else {
		hits, err := a.kb.SearchPaper(ctx, p.ID, strings.TrimSpace(p.Title+"\n"+p.Abstract), SummarizeMaxChunks)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(hits, func(i, j int) bool {
			return hits[i].Chunk.Seq < hits[j].Chunk.Seq
		})
		sources = sourcesFromHits(hits)
	}
	numberSources(sources)

	a.logger.WithFields(logrus.Fields{
		"paper_id": p.ID,
		"chunks":   len(chunks),
		"used":     len(sources),
	}).Debug("summarizing paper")
	return a.generate(ctx, ModeSummarize, buildSummaryPrompt(p, sources), sources)
}

// Compare contrasts the sub-topics of topic, e.g. "CNNs vs transformers".
// When the retrieved passages come from fewer than two papers it falls back
// to a synthesis over the single source.
func (a *Assistant) Compare(ctx context.Context, topic string) (*Response, error) {
	subtopics := SplitTopics(topic)

	var hits []kb.SearchHit
	seen := make(map[chunkKey]bool)
	for _, sub := range subtopics {
		found, err := a.kb.Search(ctx, sub, CompareKPerTopic)
		if err != nil {
			return nil, err
		}
		for _, h := range found {
			key := chunkKey{h.Chunk.PaperID, h.Chunk.Seq}
			if !seen[key] {
				seen[key] = true
				hits = append(hits, h)
			}
		}
	}
	sources := sourcesFromHits(hits)

	if distinctPapers(hits) < 2 {
		a.logger.WithField("topic", topic).Debug("fewer than two papers retrieved, synthesizing instead")
		return a.generate(ctx, ModeCompare, buildSynthesisPrompt(topic, sources), sources)
	}
	return a.generate(ctx, ModeCompare, buildComparePrompt(topic, subtopics, sources), sources)
}

// RelatedWork drafts a literature review paragraph, preferring passages from
// many different papers over several passages from one.
func (a *Assistant) RelatedWork(ctx context.Context, topic string) (*Response, error) {
	candidates, err := a.kb.Search(ctx, topic, RelatedWorkCandidates)
	if err != nil {
		return nil, err
	}
	sources := sourcesFromHits(diversify(candidates, RelatedWorkK))
	return a.generate(ctx, ModeRelatedWork, buildRelatedWorkPrompt(topic, sources), sources)
}

// Brainstorm expands an idea, loosely grounded on related passages.
func (a *Assistant) Brainstorm(ctx context.Context, idea string) (*Response, error) {
	hits, err := a.kb.Search(ctx, idea, BrainstormK)
	if err != nil {
		return nil, err
	}
	sources := sourcesFromHits(hits)
	return a.generate(ctx, ModeBrainstorm, buildBrainstormPrompt(idea, sources), sources)
}

func (a *Assistant) generate(ctx context.Context, mode Mode, prompt string, sources []Source) (*Response, error) {
	log := a.logger.WithFields(logrus.Fields{
		"mode":    mode,
		"backend": a.backend.Name(),
		"sources": len(sources),
	})
	log.Debug("generating")

	text, err := a.backend.Generate(ctx, prompt)
	if err != nil {
		if !generation.IsError(err) {
			err = &generation.Error{Backend: a.backend.Name(), Err: err}
		}
		log.WithError(err).Warn("generation failed")
		return nil, err
	}
	return &Response{Mode: mode, Text: text, Sources: sources}, nil
}

// topicSeparator matches the connectives that split a comparison into sub-topics.
var topicSeparator = regexp.MustCompile(`(?i)\s+(?:vs\.?|versus|compared\s+(?:to|with))\s+`)

// SplitTopics splits a comparison topic on "vs", "vs.", "versus",
// "compared to" and "compared with". A topic without a separator, or with
// fewer than two non-empty parts, is returned whole.
func SplitTopics(topic string) []string {
	topic = strings.TrimSpace(topic)
	var parts []string
	for _, p := range topicSeparator.Split(topic, -1) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return []string{topic}
	}
	return parts
}

// diversify picks the best hit of each distinct paper first, in score order,
// then fills the remaining slots with the best unused hits.
func diversify(hits []kb.SearchHit, k int) []kb.SearchHit {
	if k > len(hits) {
		k = len(hits)
	}
	picked := make([]kb.SearchHit, 0, k)
	used := make([]bool, len(hits))
	papers := make(map[string]bool)

	for i, h := range hits {
		if len(picked) == k {
			break
		}
		if !papers[h.Chunk.PaperID] {
			papers[h.Chunk.PaperID] = true
			used[i] = true
			picked = append(picked, h)
		}
	}
	for i, h := range hits {
		if len(picked) == k {
			break
		}
		if !used[i] {
			picked = append(picked, h)
		}
	}
	return picked
}

type chunkKey struct {
	paperID string
	seq     int
}

func distinctPapers(hits []kb.SearchHit) int {
	ids := make(map[string]bool)
	for _, h := range hits {
		ids[h.Chunk.PaperID] = true
	}
	return len(ids)
}

func sourcesFromHits(hits []kb.SearchHit) []Source {
	sources := make([]Source, len(hits))
	for i, h := range hits {
		sources[i] = Source{
			Title:   h.Title,
			PaperID: h.Chunk.PaperID,
			Seq:     h.Chunk.Seq,
			Section: h.Chunk.Section,
			Score:   h.Score,
			Text:    h.Chunk.Text,
		}
	}
	numberSources(sources)
	return sources
}

func numberSources(sources []Source) {
	for i := range sources {
		sources[i].Index = i + 1
	}
}
