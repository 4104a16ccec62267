package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scholarkb/scholarkb/internal/pdf"
)

func init() {
	rootCmd.AddCommand(openCmd)
}

var openCmd = &cobra.Command{
	Use:   "open <id>",
	Short: "Open a paper's source document in a viewer",
	Long: `Open the file a paper was ingested from.

The viewer is chosen by the 'viewer' setting in .skb/config.yml
(system, skim, preview, zathura, evince, okular).`,
	Args: cobra.ExactArgs(1),
	RunE: runOpen,
}

func runOpen(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(context.Background(), appOptions{allowStale: true})
	defer a.close()

	p, ok := a.kb.GetPaper(args[0])
	if !ok {
		exitWithError(ExitNotFound, "paper not found: %s", args[0])
	}

	if err := pdf.NewOpener(a.settings.Viewer).Open(p.SourcePath); err != nil {
		exitWithError(ExitError, "opening %s: %v", p.SourcePath, err)
	}

	if humanOutput {
		fmt.Printf("Opened %s\n", p.SourcePath)
	} else {
		outputJSON(StatusResponse{Status: "opened", Path: p.SourcePath})
	}
	return nil
}
