package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scholarkb/scholarkb/internal/kb"
)

var searchK int

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchK, "k", "k", DefaultSearchK, "Number of passages to return")
}

// SearchResponse is the response for the search command.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []kb.SearchHit `json:"results"`
	Total   int            `json:"total"`
	Model   string         `json:"model"`
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find the passages most similar to a query",
	Long: `Search all indexed passages by embedding similarity.

Examples:
  skb search "self-attention"
  skb search -k 10 "contrastive pre-training"`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	query := strings.TrimSpace(args[0])
	if query == "" {
		exitWithError(ExitError, "Search query cannot be empty")
	}

	a := mustOpenApp(ctx, appOptions{})
	defer a.close()

	hits, err := a.kb.Search(ctx, query, searchK)
	if err != nil {
		exitForError(err, "searching")
	}

	model, _ := a.kb.Model()
	if humanOutput {
		fmt.Printf("Search: %q\n", query)
		fmt.Printf("Found %d passages\n\n", len(hits))
		for i, h := range hits {
			fmt.Printf("%d. [%.3f] %s  (chunk %d)\n", i+1, h.Score, truncateString(h.Title, SearchTitleMaxLen), h.Chunk.Seq)
			fmt.Printf("   %s\n\n", wrapText(truncateString(strings.Join(strings.Fields(h.Chunk.Text), " "), PassagePreviewLen), TextWrapWidth, "   "))
		}
		return nil
	}

	outputJSON(SearchResponse{Query: query, Results: hits, Total: len(hits), Model: model})
	return nil
}
