package assistant

import (
	"fmt"
	"strings"

	"github.com/scholarkb/scholarkb/internal/generation"
	"github.com/scholarkb/scholarkb/internal/paper"
)

// maxPassageLength bounds each retrieved passage in a prompt.
const maxPassageLength = 1500

// formatSources renders passages as numbered, title-tagged blocks.
func formatSources(sources []Source) string {
	if len(sources) == 0 {
		return "(no passages retrieved)\n"
	}
	var sb strings.Builder
	for _, s := range sources {
		fmt.Fprintf(&sb, "[%d] (%s)\n%s\n\n", s.Index, s.Title, generation.TruncateUTF8(s.Text, maxPassageLength))
	}
	return sb.String()
}

func buildAskPrompt(question string, sources []Source) string {
	return fmt.Sprintf(`You are a research assistant answering questions about a collection of academic papers.

Answer the question using only the passages below. Cite the passages you rely on by their number and paper title, e.g. [1] (Title). If the passages do not contain the answer, say so.

Passages:
%s
Question: %s

Answer:`, formatSources(sources), question)
}

func buildSummaryPrompt(p paper.Paper, sources []Source) string {
	var meta strings.Builder
	fmt.Fprintf(&meta, "TITLE: %s\n", p.Title)
	if len(p.Authors) > 0 {
		fmt.Fprintf(&meta, "AUTHORS: %s\n", strings.Join(p.Authors, ", "))
	}
	if p.Year != nil {
		fmt.Fprintf(&meta, "YEAR: %d\n", *p.Year)
	}
	if p.Venue != "" {
		fmt.Fprintf(&meta, "VENUE: %s\n", p.Venue)
	}

	return fmt.Sprintf(`You are a research assistant summarizing an academic paper.

%s
Using the excerpts below, write a structured summary with these sections:
- Problem: what question or gap the paper addresses
- Method: the approach the authors take
- Findings: the main results and conclusions

Excerpts:
%s
Summary:`, meta.String(), formatSources(sources))
}

func buildComparePrompt(topic string, subtopics []string, sources []Source) string {
	focus := topic
	if len(subtopics) > 1 {
		focus = strings.Join(subtopics, " | ")
	}
	return fmt.Sprintf(`You are a research assistant comparing work across academic papers.

Compare the following: %s

Using the passages below, produce a structured comparison with two sections:
- Similarities
- Differences
Cite passages by number and paper title, e.g. [2] (Title).

Passages:
%s
Comparison:`, focus, formatSources(sources))
}

// buildSynthesisPrompt is used for compare when the passages come from fewer
// than two papers and there is nothing to contrast.
func buildSynthesisPrompt(topic string, sources []Source) string {
	return fmt.Sprintf(`You are a research assistant. The user asked for a comparison of: %s

The knowledge base only has material from a single source on this topic, so a side-by-side comparison is not possible. Instead, synthesize what the passages below say about each part of the topic, and point out what additional work would be needed to complete the comparison.

Passages:
%s
Synthesis:`, topic, formatSources(sources))
}

func buildRelatedWorkPrompt(topic string, sources []Source) string {
	return fmt.Sprintf(`You are a research assistant writing the related work section of a paper.

Topic: %s

Write a cohesive literature review paragraph that situates this topic among the passages below. Cite each paper you discuss in the form (Title). Group related approaches and note how they differ. Do not invent papers that are not listed.

Passages:
%s
Related work:`, topic, formatSources(sources))
}

func buildBrainstormPrompt(idea string, sources []Source) string {
	return fmt.Sprintf(`You are a creative research collaborator.

Idea: %s

Expand on this idea. Suggest research questions, possible methods and experiments, and connections to existing work. The passages below are from papers in the user's collection; draw connections to them where relevant and cite them as [n] (Title), but you may go beyond them.

Passages:
%s
Ideas:`, idea, formatSources(sources))
}
