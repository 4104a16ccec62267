package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scholarkb/scholarkb/internal/assistant"
)

var showSources bool

// assistantCommands defines one command per assistant mode.
var assistantCommands = []struct {
	mode  assistant.Mode
	use   string
	short string
	long  string
}{
	{assistant.ModeAsk, "ask <question>", "Answer a question from your papers",
		"Retrieve the passages most relevant to the question and answer from them, citing titles."},
	{assistant.ModeSummarize, "summarize <title>", "Summarize a paper",
		"Summarize the paper with exactly this title: problem, method and findings."},
	{assistant.ModeCompare, "compare <topic>", "Compare approaches across papers",
		"Compare the sub-topics of a query such as \"CNNs vs transformers\" across your papers."},
	{assistant.ModeRelatedWork, "related-work <topic>", "Draft a related work paragraph",
		"Write a literature review paragraph on a topic, drawing on as many distinct papers as possible."},
	{assistant.ModeBrainstorm, "brainstorm <idea>", "Expand a research idea",
		"Expand an idea with questions, methods and connections to papers in the knowledge base."},
}

func init() {
	for _, c := range assistantCommands {
		mode := c.mode
		cmd := &cobra.Command{
			Use:   c.use,
			Short: c.short,
			Long:  c.long,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runAssistant(mode, strings.Join(args, " "))
			},
		}
		cmd.Flags().BoolVar(&showSources, "sources", false, "Show the retrieved passages (human output)")
		rootCmd.AddCommand(cmd)
	}
}

func runAssistant(mode assistant.Mode, input string) error {
	ctx := context.Background()
	input = strings.TrimSpace(input)
	if input == "" {
		exitWithError(ExitError, "input cannot be empty")
	}

	a := mustOpenApp(ctx, appOptions{backend: true})
	defer a.close()
	a.mustCheckBackend(ctx)

	resp, err := a.assistant().Run(ctx, assistant.Query{Mode: mode, Input: input})
	if err != nil {
		exitForError(err, string(mode))
	}

	if !humanOutput {
		outputJSON(resp)
		return nil
	}

	fmt.Println(resp.Text)
	if showSources && len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range resp.Sources {
			fmt.Printf("  [%d] %s (chunk %d", s.Index, truncateString(s.Title, SearchTitleMaxLen), s.Seq)
			if s.Score != 0 {
				fmt.Printf(", score %.3f", s.Score)
			}
			fmt.Println(")")
			fmt.Printf("      %s\n", wrapText(truncateString(strings.Join(strings.Fields(s.Text), " "), PassagePreviewLen), TextWrapWidth, "      "))
		}
	}
	return nil
}
