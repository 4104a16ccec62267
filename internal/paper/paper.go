// Package paper defines the core domain types for ingested research papers.
package paper

import (
	"path/filepath"
	"strings"
	"time"
)

// MetadataSource records how a paper's metadata was obtained.
type MetadataSource string

const (
	// MetadataExtracted means the extractor produced a title from the document text.
	MetadataExtracted MetadataSource = "extracted"
	// MetadataDegraded means extraction failed and the filename stem was used as title.
	MetadataDegraded MetadataSource = "degraded"
)

// Paper represents a research paper in the registry.
type Paper struct {
	// Identity
	ID          string `json:"id"`          // Stable identifier derived from the content fingerprint
	Fingerprint string `json:"fingerprint"` // SHA256 of normalized text (deduplication key)

	// Metadata
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Year     *int     `json:"year,omitempty"`     // nil if unknown
	Venue    string   `json:"venue,omitempty"`    // Journal or conference, empty if unknown
	Abstract string   `json:"abstract,omitempty"` // Empty if unknown
	Keywords []string `json:"keywords"`
	DOI      string   `json:"doi,omitempty"`

	// Provenance
	SourcePath     string         `json:"source_path"`
	AddedAt        time.Time      `json:"added_at"`
	MetadataSource MetadataSource `json:"metadata_source"`
}

// HasYear reports whether the publication year is known.
func (p Paper) HasYear() bool {
	return p.Year != nil
}

// YearOrZero returns the publication year, or 0 if unknown.
func (p Paper) YearOrZero() int {
	if p.Year == nil {
		return 0
	}
	return *p.Year
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// FilenameStem returns the base name of path without its extension.
func FilenameStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NormalizeKeywords trims keywords and removes case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}
