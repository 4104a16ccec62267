package export

import (
	"strings"
	"testing"

	"github.com/scholarkb/scholarkb/internal/paper"
)

func attention() paper.Paper {
	return paper.Paper{
		ID:       "3f2a9c0d1e4b5a67",
		Title:    "Attention Is All You Need",
		Authors:  []string{"Ashish Vaswani", "Noam Shazeer"},
		Year:     paper.IntPtr(2017),
		Venue:    "Neural Information Processing Systems",
		Abstract: "The dominant sequence transduction models...",
		Keywords: []string{"transformer", "attention"},
		DOI:      "10.5555/3295222.3295349",
	}
}

func TestToBibTeX(t *testing.T) {
	got := ToBibTeX(attention(), "Vaswani2017attention")

	wants := []string{
		"@inproceedings{Vaswani2017attention,",
		"author = {Vaswani, Ashish and Shazeer, Noam}",
		"title = {Attention Is All You Need}",
		"booktitle = {Neural Information Processing Systems}",
		"year = {2017}",
		"doi = {10.5555/3295222.3295349}",
		"keywords = {transformer, attention}",
		"abstract = {The dominant sequence transduction models...}",
	}
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("ToBibTeX() missing %q, got:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "}\n") {
		t.Errorf("ToBibTeX() should end with closing brace, got:\n%s", got)
	}
}

func TestToBibTeX_OptionalFields(t *testing.T) {
	p := paper.Paper{ID: "abc", Title: "Untitled Draft"}
	got := ToBibTeX(p, "abc")

	for _, field := range []string{"author", "journal", "booktitle", "year", "doi", "keywords", "abstract"} {
		if strings.Contains(got, field+" =") {
			t.Errorf("ToBibTeX() should omit empty %s, got:\n%s", field, got)
		}
	}
	if !strings.HasPrefix(got, "@article{abc,") {
		t.Errorf("ToBibTeX() = %s", got)
	}
}

func TestDetermineEntryType(t *testing.T) {
	tests := []struct {
		venue string
		want  string
	}{
		{"Nature", "article"},
		{"arXiv", "article"},
		{"Proceedings of ICML", "inproceedings"},
		{"Conference on Computer Vision and Pattern Recognition", "inproceedings"},
		{"NeurIPS Workshop on Meta-Learning", "inproceedings"},
		{"", "article"},
	}

	for _, tt := range tests {
		t.Run(tt.venue, func(t *testing.T) {
			if got := determineEntryType(paper.Paper{Venue: tt.venue}); got != tt.want {
				t.Errorf("determineEntryType(%q) = %q, want %q", tt.venue, got, tt.want)
			}
		})
	}
}

func TestFormatAuthors(t *testing.T) {
	tests := []struct {
		name    string
		authors []string
		want    string
	}{
		{"single", []string{"Kaiming He"}, "He, Kaiming"},
		{"middle names", []string{"Jacob D. Devlin"}, "Devlin, Jacob D."},
		{"already inverted", []string{"LeCun, Yann"}, "LeCun, Yann"},
		{"mononym", []string{"Aristotle"}, "Aristotle"},
		{"multiple", []string{"Ashish Vaswani", "Noam Shazeer"}, "Vaswani, Ashish and Shazeer, Noam"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatAuthors(tt.authors); got != tt.want {
				t.Errorf("formatAuthors(%v) = %q, want %q", tt.authors, got, tt.want)
			}
		})
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Plain text", "Plain text"},
		{"R&D", `R\&D`},
		{"100% accurate", `100\% accurate`},
		{"snake_case", `snake\_case`},
		{"{braces}", `\{braces\}`},
		{"x^2 ~ y", `x\textasciicircum{}2 \textasciitilde{} y`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := escapeLatex(tt.input); got != tt.want {
				t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCitationKey(t *testing.T) {
	tests := []struct {
		name string
		p    paper.Paper
		want string
	}{
		{"full", attention(), "Vaswani2017attention"},
		{"no year", paper.Paper{Title: "Deep Residual Learning", Authors: []string{"Kaiming He"}}, "Hedeep"},
		{"skips short words", paper.Paper{Title: "On the Use of BERT", Authors: []string{"A. Smith"}, Year: paper.IntPtr(2020)}, "Smith2020bert"},
		{"no authors", paper.Paper{ID: "abc123", Title: "Anonymous"}, "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CitationKey(tt.p); got != tt.want {
				t.Errorf("CitationKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToBibTeXList(t *testing.T) {
	second := attention()
	second.ID = "ffff000011112222"

	got := ToBibTeXList([]paper.Paper{attention(), second})

	if !strings.Contains(got, "{Vaswani2017attention,") || !strings.Contains(got, "{Vaswani2017attentiona,") {
		t.Errorf("colliding keys should be disambiguated, got:\n%s", got)
	}
	if strings.Count(got, "@inproceedings{") != 2 {
		t.Errorf("expected 2 entries, got:\n%s", got)
	}
}

func TestToBibTeXList_Empty(t *testing.T) {
	if got := ToBibTeXList(nil); got != "" {
		t.Errorf("ToBibTeXList(nil) = %q, want empty", got)
	}
}
