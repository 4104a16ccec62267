package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scholarkb/scholarkb/internal/kb"
	"github.com/scholarkb/scholarkb/internal/paper"
)

var listFilter string

func init() {
	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "Only papers whose title or keywords contain this term")
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(getCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers in the knowledge base",
	Long: `List papers in the order they were added.

Examples:
  skb list
  skb list --filter transformer`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(context.Background(), appOptions{allowStale: true})
	defer a.close()

	papers := a.kb.ListPapers()
	total := len(papers)
	if listFilter != "" {
		papers = paper.Filter(papers, listFilter)
	}

	if humanOutput {
		switch {
		case total == 0:
			fmt.Println("No papers in knowledge base")
		case listFilter != "":
			fmt.Printf("%d of %d papers match %q:\n\n", len(papers), total, listFilter)
		default:
			fmt.Printf("%d papers in knowledge base:\n\n", total)
		}
		for _, p := range papers {
			fmt.Printf("  %-16s %s (%s)\n", p.ID, truncateString(p.Title, ListTitleMaxLen), formatYear(p))
			if len(p.Authors) > 0 {
				fmt.Printf("  %-16s %s\n", "", formatAuthorsShort(p.Authors, 3))
			}
		}
		return nil
	}

	if papers == nil {
		papers = []paper.Paper{}
	}
	outputJSON(papers)
	return nil
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(context.Background(), appOptions{allowStale: true})
	defer a.close()

	stats := a.kb.Stats()
	if humanOutput {
		printStatsHuman(stats)
		return nil
	}
	if stats.TopKeywords == nil {
		stats.TopKeywords = []paper.KeywordCount{}
	}
	outputJSON(stats)
	return nil
}

func printStatsHuman(stats kb.Stats) {
	fmt.Printf("Papers: %d\n", stats.TotalPapers)
	fmt.Printf("Chunks: %d\n", stats.TotalChunks)
	if len(stats.TopKeywords) == 0 {
		return
	}
	fmt.Println("Top keywords:")
	for _, kc := range stats.TopKeywords {
		fmt.Printf("  %-30s %d\n", kc.Keyword, kc.Count)
	}
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a paper's metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(context.Background(), appOptions{allowStale: true})
	defer a.close()

	p, ok := a.kb.GetPaper(args[0])
	if !ok {
		exitWithError(ExitNotFound, "paper not found: %s", args[0])
	}

	if humanOutput {
		printPaperHuman(p)
		return nil
	}
	outputJSON(p)
	return nil
}

func printPaperHuman(p paper.Paper) {
	fmt.Println(p.Title)
	fmt.Println(strings.Repeat("=", min(len(p.Title), TextWrapWidth)))
	fmt.Println()
	fmt.Printf("ID:       %s\n", p.ID)
	if len(p.Authors) > 0 {
		fmt.Printf("Authors:  %s\n", wrapText(strings.Join(p.Authors, ", "), TextWrapWidth-10, "          "))
	}
	fmt.Printf("Year:     %s\n", formatYear(p))
	if p.Venue != "" {
		fmt.Printf("Venue:    %s\n", p.Venue)
	}
	if p.DOI != "" {
		fmt.Printf("DOI:      %s\n", p.DOI)
	}
	if len(p.Keywords) > 0 {
		fmt.Printf("Keywords: %s\n", strings.Join(p.Keywords, ", "))
	}
	fmt.Printf("Source:   %s\n", p.SourcePath)
	fmt.Printf("Added:    %s\n", p.AddedAt.Local().Format("2006-01-02 15:04"))
	if p.MetadataSource == paper.MetadataDegraded {
		fmt.Println("          (title taken from filename)")
	}
	if p.Abstract != "" {
		fmt.Printf("\nAbstract:\n  %s\n", wrapText(p.Abstract, TextWrapWidth, "  "))
	}
}
