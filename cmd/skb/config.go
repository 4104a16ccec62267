package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/scholarkb/scholarkb/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect repository configuration",
}

// ConfigShowResponse is the response for config show.
type ConfigShowResponse struct {
	Root          string           `json:"root"`
	Path          string           `json:"path"`
	Settings      *config.Settings `json:"settings"`
	GeminiKeySet  bool             `json:"gemini_api_key_set"`
	OllamaHostEnv string           `json:"ollama_host_env,omitempty"`
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings after defaults and environment overrides",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	root := mustFindRepository()
	s := mustLoadSettings(root).Redacted()

	if humanOutput {
		data, err := yaml.Marshal(s)
		if err != nil {
			exitWithError(ExitError, "encoding config: %v", err)
		}
		fmt.Printf("# %s\n%s", config.ConfigPath(root), data)
		if s.GeminiAPIKey != "" {
			fmt.Printf("# %s is set\n", config.GeminiAPIKeyEnv)
		}
		return nil
	}

	outputJSON(ConfigShowResponse{
		Root:          root,
		Path:          config.ConfigPath(root),
		Settings:      s,
		GeminiKeySet:  s.GeminiAPIKey != "",
		OllamaHostEnv: os.Getenv(config.OllamaHostEnv),
	})
	return nil
}
