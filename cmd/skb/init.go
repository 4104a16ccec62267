package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scholarkb/scholarkb/internal/config"
	"github.com/scholarkb/scholarkb/internal/storage"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new knowledge base",
	Long: `Initialize a new knowledge base in the current directory.

Creates:
  .skb/
  ├── config.yml   # Default settings
  └── kb.db        # Papers, chunks and embeddings`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}
	if env := os.Getenv(config.RootEnv); env != "" {
		root = config.ExpandPath(env)
	}

	if _, err := config.Init(root); err != nil {
		if errors.Is(err, config.ErrAlreadyInitialized) {
			exitWithError(ExitError, "directory already contains a knowledge base")
		}
		exitWithError(ExitError, "%v", err)
	}

	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "creating database: %v", err)
	}
	db.Close()

	if humanOutput {
		fmt.Printf("Initialized knowledge base in %s\n", root)
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: root})
	}
	return nil
}
