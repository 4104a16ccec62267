package metadata

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/scholarkb/scholarkb/internal/paper"
	"github.com/scholarkb/scholarkb/internal/pdf"
)

const (
	// frontMatterLines is how many leading non-empty lines are searched for
	// title, authors, year and venue.
	frontMatterLines = 40

	// maxTitleLength bounds a plausible title line, in characters.
	maxTitleLength = 250

	// maxAbstractLength caps the stored abstract, in bytes.
	maxAbstractLength = 2000

	// maxInferredKeywords is the number of keywords inferred from term frequency
	// when the document has no keyword line.
	maxInferredKeywords = 5
)

var (
	yearPattern     = regexp.MustCompile(`\b(19[5-9]\d|20\d\d)\b`)
	keywordsPattern = regexp.MustCompile(`(?i)^\s*(?:keywords|key words|index terms)\s*[:\-\x{2014}.]\s*(.+)$`)
	abstractPattern = regexp.MustCompile(`(?i)^\s*abstract\s*(?:[:\-\x{2014}.]\s*(.*))?$`)
	headingLine     = regexp.MustCompile(`(?i)^(?:#+\s*)?(?:\d+(?:\.\d+)*\.?\s+|[IVX]+\.\s+)?(?:introduction|background|related work|methods?|keywords|index terms)\s*:?$`)
	sectionStart    = regexp.MustCompile(`(?i)^\s*(?:#+\s*)?(?:\d+(?:\.\d+)*\.?\s+|[IVX]+\.\s+)?(?:introduction|background|keywords|key words|index terms|related work|methods?)\b`)
	venuePattern    = regexp.MustCompile(`(?i)\b(proceedings|conference|journal|workshop|symposium|transactions|neurips|nips|icml|iclr|acl|emnlp|naacl|cvpr|iccv|eccv|aaai|ijcai|kdd|sigir|arxiv)\b`)
	authorMarkers   = regexp.MustCompile(`[\d*†‡§¶∗]+`)
	emailPattern    = regexp.MustCompile(`\S+@\S+`)
	wordPattern     = regexp.MustCompile(`\p{L}[\p{L}\-]*`)
)

// Heuristic extracts metadata from the layout of a paper's front matter.
type Heuristic struct {
	now func() time.Time
}

// NewHeuristic creates a layout-based extractor.
func NewHeuristic() *Heuristic {
	return &Heuristic{now: time.Now}
}

// Extract derives metadata from doc. A document with no plausible title
// line yields a degraded result.
func (h *Heuristic) Extract(ctx context.Context, doc *pdf.Document) Result {
	lines := frontMatter(doc.Text)

	m := Metadata{DOI: doc.DOI}
	titleIdx := findTitle(lines, doc.Format)
	if titleIdx >= 0 {
		m.Title = cleanTitle(lines[titleIdx])
		m.Authors = findAuthors(lines, titleIdx)
	}
	m.Year = h.findYear(lines)
	m.Venue = findVenue(lines, titleIdx)
	m.Abstract = findAbstract(doc.Text)
	m.Keywords = findKeywords(doc.Text)

	if m.Title == "" {
		return Degraded(m, doc.Path, "no title line found")
	}
	return Extracted(m)
}

// frontMatter returns the leading non-empty lines of text, trimmed.
func frontMatter(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "\f"))
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == frontMatterLines {
			break
		}
	}
	return lines
}

// findTitle returns the index of the title line, or -1.
func findTitle(lines []string, format pdf.Format) int {
	if format == pdf.FormatMarkdown {
		for i, line := range lines {
			if strings.HasPrefix(line, "# ") {
				return i
			}
		}
	}
	for i, line := range lines {
		if abstractPattern.MatchString(line) || headingLine.MatchString(line) {
			return -1
		}
		if isTitleLike(line) {
			return i
		}
	}
	return -1
}

func isTitleLike(line string) bool {
	if len(line) < 4 || len(line) > maxTitleLength {
		return false
	}
	if pdf.IsHeaderLine(line) || emailPattern.MatchString(line) || strings.Contains(line, "://") {
		return false
	}
	if strings.HasPrefix(line, "10.") || strings.HasPrefix(strings.ToLower(line), "doi") {
		return false
	}
	words := wordPattern.FindAllString(line, -1)
	if len(words) < 2 {
		return false
	}
	letters := 0
	for _, r := range line {
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters*2 >= len([]rune(line))
}

func cleanTitle(line string) string {
	line = strings.TrimLeft(line, "# ")
	return strings.Join(strings.Fields(line), " ")
}

// findAuthors looks for a name list in the few lines after the title.
func findAuthors(lines []string, titleIdx int) []string {
	for i := titleIdx + 1; i < len(lines) && i <= titleIdx+4; i++ {
		if abstractPattern.MatchString(lines[i]) {
			break
		}
		if names := parseAuthorLine(lines[i]); len(names) > 0 {
			return names
		}
	}
	return []string{}
}

// parseAuthorLine splits a line into person names, or returns nil if any
// part does not look like a name.
func parseAuthorLine(line string) []string {
	line = emailPattern.ReplaceAllString(line, "")
	line = authorMarkers.ReplaceAllString(line, "")
	line = strings.ReplaceAll(line, " and ", ",")
	line = strings.ReplaceAll(line, "&", ",")

	var names []string
	for _, part := range strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ';' }) {
		name := strings.Join(strings.Fields(part), " ")
		if name == "" {
			continue
		}
		if !isPersonName(name) {
			return nil
		}
		names = append(names, name)
	}
	if len(names) > 20 {
		return nil
	}
	return names
}

func isPersonName(name string) bool {
	words := strings.Fields(name)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		r := []rune(w)
		if !unicode.IsUpper(r[0]) {
			return false
		}
		for _, c := range r {
			if !unicode.IsLetter(c) && c != '.' && c != '-' && c != '\'' {
				return false
			}
		}
	}
	return true
}

// findYear returns the first plausible publication year in the front matter.
func (h *Heuristic) findYear(lines []string) *int {
	maxYear := h.now().Year() + 1
	for _, line := range lines {
		for _, match := range yearPattern.FindAllString(line, -1) {
			year, err := strconv.Atoi(match)
			if err == nil && year <= maxYear {
				return paper.IntPtr(year)
			}
		}
	}
	return nil
}

// findVenue returns the first front-matter line naming a venue, other than the title.
func findVenue(lines []string, titleIdx int) string {
	for i, line := range lines {
		if i == titleIdx || abstractPattern.MatchString(line) {
			continue
		}
		if len(line) <= 150 && venuePattern.MatchString(line) {
			return strings.Join(strings.Fields(line), " ")
		}
	}
	return ""
}

// findAbstract returns the text between an "Abstract" heading and the next section.
func findAbstract(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		m := abstractPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		var parts []string
		if rest := strings.TrimSpace(m[1]); rest != "" {
			parts = append(parts, rest)
		}
		for _, next := range lines[i+1:] {
			next = strings.TrimSpace(next)
			if sectionStart.MatchString(next) || strings.HasPrefix(next, "#") {
				break
			}
			if next == "" && len(parts) > 0 {
				break
			}
			if next != "" {
				parts = append(parts, next)
			}
		}
		return truncate(strings.Join(parts, " "), maxAbstractLength)
	}
	return ""
}

// findKeywords reads an explicit keyword line, or infers keywords from term frequency.
func findKeywords(text string) []string {
	for _, line := range strings.Split(text, "\n") {
		m := keywordsPattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		parts := strings.FieldsFunc(m[1], func(r rune) bool {
			return r == ',' || r == ';' || r == '·' || r == '•'
		})
		var keywords []string
		for _, p := range parts {
			p = strings.TrimRight(strings.TrimSpace(p), ".")
			if p != "" {
				keywords = append(keywords, p)
			}
		}
		if len(keywords) > 0 {
			return paper.NormalizeKeywords(keywords)
		}
	}
	return inferKeywords(text)
}

// inferKeywords returns the most frequent content words that appear at least twice.
func inferKeywords(text string) []string {
	counts := make(map[string]int)
	for _, w := range wordPattern.FindAllString(strings.ToLower(text), -1) {
		if len(w) < 4 || stopwords[w] {
			continue
		}
		counts[w]++
	}

	type wc struct {
		word  string
		count int
	}
	var words []wc
	for w, c := range counts {
		if c >= 2 {
			words = append(words, wc{w, c})
		}
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].count != words[j].count {
			return words[i].count > words[j].count
		}
		return words[i].word < words[j].word
	})

	keywords := []string{}
	for i := 0; i < len(words) && i < maxInferredKeywords; i++ {
		keywords = append(keywords, words[i].word)
	}
	return keywords
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := strings.LastIndex(s[:maxLen], " ")
	if cut <= 0 {
		cut = maxLen
	}
	return s[:cut]
}
