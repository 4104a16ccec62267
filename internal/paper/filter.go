package paper

import (
	"sort"
	"strings"
)

// Filter returns the papers whose title or any keyword contains term,
// compared case-insensitively. An empty term returns all papers.
func Filter(papers []Paper, term string) []Paper {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return papers
	}

	var out []Paper
	for _, p := range papers {
		if matches(p, term) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p Paper, lowerTerm string) bool {
	if strings.Contains(strings.ToLower(p.Title), lowerTerm) {
		return true
	}
	for _, kw := range p.Keywords {
		if strings.Contains(strings.ToLower(kw), lowerTerm) {
			return true
		}
	}
	return false
}

// KeywordCount is a keyword with its number of occurrences across papers.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// KeywordFrequencies aggregates keywords across papers, case-insensitively.
// Results are sorted by count descending, then keyword ascending.
func KeywordFrequencies(papers []Paper) []KeywordCount {
	counts := make(map[string]int)
	for _, p := range papers {
		for _, kw := range p.Keywords {
			key := strings.ToLower(strings.TrimSpace(kw))
			if key == "" {
				continue
			}
			counts[key]++
		}
	}

	out := make([]KeywordCount, 0, len(counts))
	for kw, n := range counts {
		out = append(out, KeywordCount{Keyword: kw, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Keyword < out[j].Keyword
	})
	return out
}
