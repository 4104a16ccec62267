package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scholarkb/scholarkb/internal/kb"
	"github.com/scholarkb/scholarkb/internal/paper"
)

var addNoProgress bool

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().BoolVar(&addNoProgress, "no-progress", false, "Suppress progress output")
}

var addCmd = &cobra.Command{
	Use:   "add <file>...",
	Short: "Add papers to the knowledge base",
	Long: `Parse, chunk and embed papers and add them to the knowledge base.

Supported formats: .pdf, .txt, .md. A paper whose text is already in the
knowledge base is reported as a duplicate and skipped.

Examples:
  skb add attention.pdf
  skb add papers/*.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

// AddResultJSON is one file's outcome in the add response.
type AddResultJSON struct {
	Path  string       `json:"path"`
	Paper *paper.Paper `json:"paper,omitempty"`
	Stage kb.Stage     `json:"stage,omitempty"`
	Error string       `json:"error,omitempty"`
}

// AddResponse is the response for the add command.
type AddResponse struct {
	Added      int             `json:"added"`
	Duplicates int             `json:"duplicates"`
	Failed     int             `json:"failed"`
	Results    []AddResultJSON `json:"results"`
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	showProgress := humanOutput && !addNoProgress

	opts := appOptions{}
	if showProgress {
		opts.progress = kb.ProgressFunc(printProgress)
	}
	a := mustOpenApp(ctx, opts)
	defer a.close()
	a.mustCheckEmbedder(ctx)

	results := a.kb.AddPapers(ctx, args)
	if showProgress {
		clearProgress()
	}

	resp := AddResponse{Results: make([]AddResultJSON, 0, len(results))}
	var lastErr error
	for _, res := range results {
		r := AddResultJSON{Path: res.Path, Paper: res.Paper}
		switch {
		case res.Err == nil:
			resp.Added++
		case kb.IsDuplicate(res.Err):
			resp.Duplicates++
		default:
			resp.Failed++
		}
		if res.Err != nil {
			r.Stage, r.Error = kb.StageOf(res.Err), res.Err.Error()
			lastErr = res.Err
		}
		resp.Results = append(resp.Results, r)

		if humanOutput {
			printAddResult(r)
		}
	}

	if humanOutput {
		fmt.Printf("\n%d added, %d duplicates, %d failed\n", resp.Added, resp.Duplicates, resp.Failed)
	} else {
		outputJSON(resp)
	}

	// Fail only when nothing was added, so a batch with some duplicates succeeds.
	if resp.Added == 0 && lastErr != nil {
		a.close()
		os.Exit(exitCodeFor(lastErr))
	}
	return nil
}

func printAddResult(r AddResultJSON) {
	if r.Paper != nil {
		fmt.Printf("  + %s  %s\n", r.Paper.ID, truncateString(r.Paper.Title, ListTitleMaxLen))
		if r.Paper.MetadataSource == paper.MetadataDegraded {
			fmt.Printf("    (no title found; using filename)\n")
		}
		return
	}
	fmt.Printf("  ! %s: %s\n", r.Path, r.Error)
}
