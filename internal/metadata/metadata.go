// Package metadata extracts bibliographic metadata from parsed documents.
//
// Extraction never fails: when no title can be found the result is
// degraded and the filename stem stands in for the title.
package metadata

import (
	"context"

	"github.com/scholarkb/scholarkb/internal/paper"
	"github.com/scholarkb/scholarkb/internal/pdf"
)

// Metadata holds the fields an extractor recovers from a document.
type Metadata struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     *int     `json:"year,omitempty"`
	Venue    string   `json:"venue,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
	Keywords []string `json:"keywords"`
	DOI      string   `json:"doi,omitempty"`
}

// Result is either extracted metadata or degraded metadata with a reason.
type Result struct {
	Metadata Metadata
	Source   paper.MetadataSource
	Reason   string // Why extraction degraded; empty when extracted
}

// Extracted returns a result for successfully extracted metadata.
func Extracted(m Metadata) Result {
	return Result{Metadata: m, Source: paper.MetadataExtracted}
}

// Degraded returns a result whose title falls back to the stem of path.
func Degraded(m Metadata, path, reason string) Result {
	m.Title = paper.FilenameStem(path)
	return Result{Metadata: m, Source: paper.MetadataDegraded, Reason: reason}
}

// IsDegraded reports whether the title is a filename fallback.
func (r Result) IsDegraded() bool {
	return r.Source == paper.MetadataDegraded
}

// Extractor derives metadata from a parsed document.
type Extractor interface {
	Extract(ctx context.Context, doc *pdf.Document) Result
}

var (
	_ Extractor = (*Heuristic)(nil)
	_ Extractor = (*Generative)(nil)
)
