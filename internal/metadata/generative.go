package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/scholarkb/scholarkb/internal/generation"
	"github.com/scholarkb/scholarkb/internal/logging"
	"github.com/scholarkb/scholarkb/internal/paper"
	"github.com/scholarkb/scholarkb/internal/pdf"
)

// maxPromptText limits how much of the document is sent to the backend.
const maxPromptText = 6000

// Generative asks a generation backend for metadata and falls back to
// another extractor when the backend fails or answers with something unusable.
type Generative struct {
	backend  generation.Backend
	fallback Extractor
	logger   logrus.FieldLogger
}

// NewGenerative creates an extractor that prefers backend and uses fallback
// for any field the backend leaves empty. A nil logger discards warnings.
func NewGenerative(backend generation.Backend, fallback Extractor, logger logrus.FieldLogger) *Generative {
	return &Generative{
		backend:  backend,
		fallback: fallback,
		logger:   logging.OrDiscard(logger),
	}
}

// generatedMetadata is the JSON shape requested from the backend.
type generatedMetadata struct {
	Title    string          `json:"title"`
	Authors  []string        `json:"authors"`
	Year     json.RawMessage `json:"year"`
	Venue    string          `json:"venue"`
	Abstract string          `json:"abstract"`
	Keywords []string        `json:"keywords"`
}

// Extract returns the backend's metadata merged over the fallback result.
func (g *Generative) Extract(ctx context.Context, doc *pdf.Document) Result {
	base := g.fallback.Extract(ctx, doc)
	log := g.logger.WithFields(logrus.Fields{"path": doc.Path, "backend": g.backend.Name()})

	response, err := g.backend.Generate(ctx, buildMetadataPrompt(doc.Text))
	if err != nil {
		log.WithError(err).Warn("generative metadata extraction failed, using heuristic result")
		return base
	}

	gen, err := parseMetadataResponse(response)
	if err != nil {
		log.WithError(err).Warn("unusable metadata response, using heuristic result")
		return base
	}

	m := base.Metadata
	m.Title = gen.Title
	if len(gen.Authors) > 0 {
		m.Authors = trimAll(gen.Authors)
	}
	if year := parseYear(gen.Year); year != nil {
		m.Year = year
	}
	if v := strings.TrimSpace(gen.Venue); v != "" {
		m.Venue = v
	}
	if a := strings.TrimSpace(gen.Abstract); a != "" {
		m.Abstract = truncate(a, maxAbstractLength)
	}
	if len(gen.Keywords) > 0 {
		m.Keywords = paper.NormalizeKeywords(gen.Keywords)
	}
	return Extracted(m)
}

func buildMetadataPrompt(text string) string {
	return fmt.Sprintf(`Extract bibliographic metadata from the beginning of this research paper.

Return a JSON object with these fields:
- "title": the paper title (string)
- "authors": author names in order (array of strings)
- "year": publication year (number, or null if unknown)
- "venue": journal or conference name (string, empty if unknown)
- "abstract": the abstract text (string, empty if none)
- "keywords": 3 to 8 topical keywords (array of strings)

Paper text:
%s

Return ONLY the JSON object, no other text.`, generation.TruncateUTF8(text, maxPromptText))
}

func parseMetadataResponse(response string) (*generatedMetadata, error) {
	var gen generatedMetadata
	if err := json.Unmarshal([]byte(generation.ExtractJSON(response)), &gen); err != nil {
		return nil, fmt.Errorf("failed to parse metadata response as JSON: %w", err)
	}
	gen.Title = strings.Join(strings.Fields(gen.Title), " ")
	if gen.Title == "" {
		return nil, fmt.Errorf("metadata response has no title")
	}
	return &gen, nil
}

// parseYear accepts a JSON number or numeric string.
func parseYear(raw json.RawMessage) *int {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1900 || year > 2100 {
		return nil
	}
	return paper.IntPtr(year)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
