package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scholarkb/scholarkb/internal/export"
	"github.com/scholarkb/scholarkb/internal/storage"
)

var (
	exportOutput string
	exportFormat string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	exportCmd.Flags().StringVar(&exportFormat, "format", "jsonl", "Output format: jsonl or bibtex")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export paper metadata as JSONL or BibTeX",
	Long: `Export every paper's metadata, one JSON object per line, or as BibTeX.

Examples:
  skb export > papers.jsonl
  skb export --output papers.jsonl
  skb export --format bibtex --output refs.bib`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// ExportResponse is the response when exporting to a file.
type ExportResponse struct {
	Status string `json:"status"`
	Path   string `json:"path"`
	Papers int    `json:"papers"`
}

func runExport(cmd *cobra.Command, args []string) error {
	a := mustOpenApp(context.Background(), appOptions{allowStale: true})
	defer a.close()

	papers := a.kb.ListPapers()

	switch exportFormat {
	case "jsonl":
		if exportOutput == "" {
			if err := storage.Encode(os.Stdout, papers); err != nil {
				exitWithError(ExitError, "writing export: %v", err)
			}
			return nil
		}
		if err := storage.WriteAll(exportOutput, papers); err != nil {
			exitWithError(ExitError, "writing export: %v", err)
		}
	case "bibtex":
		bib := export.ToBibTeXList(papers)
		if exportOutput == "" {
			fmt.Print(bib)
			return nil
		}
		if err := os.WriteFile(exportOutput, []byte(bib), 0644); err != nil {
			exitWithError(ExitError, "writing export: %v", err)
		}
	default:
		exitWithError(ExitError, "unknown format %q (valid: jsonl, bibtex)", exportFormat)
	}
	if humanOutput {
		fmt.Printf("Exported %d papers to %s\n", len(papers), exportOutput)
	} else {
		outputJSON(ExportResponse{Status: "exported", Path: exportOutput, Papers: len(papers)})
	}
	return nil
}
