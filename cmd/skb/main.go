// Package main provides the skb CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool

	// verbose raises the log level to debug
	verbose bool
)

func main() {
	// A missing .env is fine; the repository's own .env is loaded later.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "skb",
	Short: "Personal research paper knowledge base",
	Long: `skb ingests academic papers (PDF, text, Markdown) into a local knowledge
base and answers questions about them with a retrieval-augmented assistant.

Papers, chunks and embeddings live in a SQLite database under .skb/.
All commands output JSON by default; use --human for readable text.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.Version = Version
}
