package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scholarkb/scholarkb/internal/kb"
)

var rebuildNoProgress bool

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexCheckCmd)
	indexCmd.AddCommand(indexRebuildCmd)
	indexCmd.AddCommand(indexCompactCmd)

	indexRebuildCmd.Flags().BoolVar(&rebuildNoProgress, "no-progress", false, "Suppress progress output")
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the vector index",
	Long:  `Commands for checking, rebuilding and compacting the stored vector index.`,
}

// IndexCheckResult is the response for the index check command.
type IndexCheckResult struct {
	Status string `json:"status"`
	*kb.CheckReport
	Recommendation string `json:"recommendation,omitempty"`
}

var indexCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check vector index health",
	Args:  cobra.NoArgs,
	RunE:  runIndexCheck,
}

func runIndexCheck(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(context.Background(), appOptions{allowStale: true})
	defer a.close()

	report, err := a.kb.Check()
	if err != nil {
		exitWithError(ExitError, "checking index: %v", err)
	}

	result := IndexCheckResult{Status: "healthy", CheckReport: report}
	switch {
	case report.Stale:
		result.Status = "stale"
		result.Recommendation = "Run 'skb index rebuild' to re-embed with the configured model"
	case report.OrphanChunks > 0:
		result.Status = "degraded"
		result.Recommendation = "Run 'skb index compact' to remove orphaned chunks"
	case !report.Healthy():
		result.Status = "degraded"
		result.Recommendation = "Run 'skb index rebuild' to regenerate embeddings"
	}

	if humanOutput {
		fmt.Printf("Index status: %s\n\n", result.Status)
		fmt.Printf("  Papers:                %d\n", report.Papers)
		fmt.Printf("  Chunks:                %d (%d loaded)\n", report.Chunks, report.Loaded)
		fmt.Printf("  Orphan chunks:         %d\n", report.OrphanChunks)
		fmt.Printf("  Papers without chunks: %d\n", len(report.PapersWithoutChunks))
		fmt.Printf("  Bad vectors:           %d\n", report.BadVectors)
		if report.Meta != nil {
			fmt.Printf("  Stored model:          %s (%d dims)\n", report.Meta.Model, report.Meta.Dimensions)
		}
		fmt.Printf("  Configured model:      %s\n", report.Model)
		if result.Recommendation != "" {
			fmt.Printf("\n%s\n", result.Recommendation)
		}
	} else {
		outputJSON(result)
	}

	if report.Stale {
		a.close()
		os.Exit(ExitIndexStale)
	}
	return nil
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Re-embed every chunk with the configured model",
	Long: `Re-embed every stored chunk with the configured embedding model and
replace the stored vectors. Needed after changing the embedding model.`,
	Args: cobra.NoArgs,
	RunE: runIndexRebuild,
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	showProgress := humanOutput && !rebuildNoProgress

	opts := appOptions{allowStale: true}
	if showProgress {
		opts.progress = kb.ProgressFunc(printProgress)
	}
	a := mustOpenApp(ctx, opts)
	defer a.close()
	a.mustCheckEmbedder(ctx)

	if showProgress {
		fmt.Fprintln(cmd.ErrOrStderr(), "Rebuilding index...")
	}
	stats, err := a.kb.Rebuild(ctx)
	if showProgress {
		clearProgress()
	}
	if err != nil {
		exitForError(err, "rebuilding index")
	}

	if humanOutput {
		fmt.Printf("Rebuild complete:\n")
		fmt.Printf("  Papers:       %d\n", stats.Papers)
		fmt.Printf("  Chunks:       %d\n", stats.Chunks)
		fmt.Printf("  Model:        %s\n", stats.Model)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(stats.Duration))
	} else {
		outputJSON(stats)
	}
	return nil
}

// CompactResult is the response for the index compact command.
type CompactResult struct {
	Status  string `json:"status"`
	Removed int    `json:"removed_chunks"`
}

var indexCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Remove orphaned chunks and reclaim space",
	Args:  cobra.NoArgs,
	RunE:  runIndexCompact,
}

func runIndexCompact(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(context.Background(), appOptions{allowStale: true})
	defer a.close()

	removed, err := a.kb.Compact()
	if err != nil {
		exitWithError(ExitError, "compacting index: %v", err)
	}

	if humanOutput {
		fmt.Printf("Removed %d orphaned chunks\n", removed)
	} else {
		outputJSON(CompactResult{Status: "compacted", Removed: removed})
	}
	return nil
}
