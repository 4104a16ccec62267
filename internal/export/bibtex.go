// Package export renders papers in citation formats.
package export

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/scholarkb/scholarkb/internal/paper"
)

// ToBibTeX converts a paper to a BibTeX entry with the given citation key.
func ToBibTeX(p paper.Paper, key string) string {
	entryType := determineEntryType(p)
	var b strings.Builder

	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, key))

	if len(p.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", formatAuthors(p.Authors)))
	}

	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(p.Title)))

	if p.Venue != "" {
		fieldName := "journal"
		if entryType == "inproceedings" {
			fieldName = "booktitle"
		}
		b.WriteString(fmt.Sprintf("  %s = {%s},\n", fieldName, escapeLatex(p.Venue)))
	}

	if p.Year != nil {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", *p.Year))
	}

	if p.DOI != "" {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", p.DOI))
	}

	if len(p.Keywords) > 0 {
		b.WriteString(fmt.Sprintf("  keywords = {%s},\n", escapeLatex(strings.Join(p.Keywords, ", "))))
	}

	if p.Abstract != "" {
		b.WriteString(fmt.Sprintf("  abstract = {%s},\n", escapeLatex(p.Abstract)))
	}

	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts papers to BibTeX, assigning each a unique key.
func ToBibTeXList(papers []paper.Paper) string {
	used := make(map[string]int)
	var entries []string
	for _, p := range papers {
		key := CitationKey(p)
		used[key]++
		if n := used[key]; n > 1 {
			key = fmt.Sprintf("%s%c", key, 'a'+n-2)
		}
		entries = append(entries, ToBibTeX(p, key))
	}
	return strings.Join(entries, "\n")
}

// CitationKey builds a key like "Vaswani2017attention" from the first
// author's surname, the year and the first significant title word. Papers
// without authors use their ID.
func CitationKey(p paper.Paper) string {
	if len(p.Authors) == 0 {
		return p.ID
	}
	_, last := splitName(p.Authors[0])

	var b strings.Builder
	b.WriteString(keyPart(last))
	if p.Year != nil {
		b.WriteString(fmt.Sprintf("%d", *p.Year))
	}
	for _, w := range strings.Fields(p.Title) {
		w = strings.ToLower(keyPart(w))
		if len(w) > 3 && !titleStopwords[w] {
			b.WriteString(w)
			break
		}
	}
	return b.String()
}

var titleStopwords = map[string]bool{
	"with": true, "from": true, "into": true, "over": true, "toward": true, "towards": true,
}

// keyPart keeps only letters and digits.
func keyPart(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

// determineEntryType returns the BibTeX entry type for a paper.
func determineEntryType(p paper.Paper) string {
	venue := strings.ToLower(p.Venue)

	// Preprints
	if strings.Contains(venue, "arxiv") ||
		strings.Contains(venue, "biorxiv") ||
		strings.Contains(venue, "medrxiv") {
		return "article"
	}

	// Conference proceedings
	if strings.Contains(venue, "proceedings") ||
		strings.Contains(venue, "conference") ||
		strings.Contains(venue, "workshop") ||
		strings.Contains(venue, "symposium") ||
		strings.Contains(venue, "neural information processing") {
		return "inproceedings"
	}

	return "article"
}

// splitName splits "First Middle Last" into its given names and surname.
// A name already written "Last, First" is kept in that order.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, ","); i >= 0 {
		return strings.TrimSpace(name[i+1:]), strings.TrimSpace(name[:i])
	}
	fields := strings.Fields(name)
	if len(fields) <= 1 {
		return "", name
	}
	return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
}

// formatAuthors formats authors in BibTeX style: "Last, First and Last, First"
func formatAuthors(authors []string) string {
	var formatted []string
	for _, a := range authors {
		first, last := splitName(a)
		if first != "" {
			formatted = append(formatted, fmt.Sprintf("%s, %s", escapeLatex(last), escapeLatex(first)))
		} else {
			formatted = append(formatted, escapeLatex(last))
		}
	}
	return strings.Join(formatted, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// & must come first so later escapes are not re-escaped.
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
