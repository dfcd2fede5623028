// CLAUDE:SUMMARY Cobra command tree for the gitdigest CLI — run, serve, mcp, version.
package commands

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nnamdiodozi/gitdigest/config"
)

// NewRootCmd builds the root command with all subcommands registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gitdigest",
		Short: "Turn a GitHub repository into an LLM-ready digest",
		Long: `gitdigest clones a GitHub repository, produces a single-file text digest,
trims it to a token budget, and optionally asks an LLM for a structured summary.

Examples:
  gitdigest run -u https://github.com/golang/go
  gitdigest run -u https://github.com/golang/go -c -w 500
  gitdigest serve --config config.yaml
  gitdigest mcp`,
		Version: version,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			// .env is optional; environment variables win either way.
			_ = godotenv.Load()
		},
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newServeCmd(),
		newMCPCmd(version),
		newVersionCmd(version),
	)

	rootCmd.PersistentFlags().String("config", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gitdigest version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gitdigest %s\n", version)
		},
	}
}

// resolveConfig loads the configuration from --config, falls back to
// ./config.yaml when present, and otherwise uses the built-in defaults.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Root().PersistentFlags().GetString("config")

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	var cfg *config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. JSON to the given writer, debug level
// when --verbose is set.
func newLogger(cmd *cobra.Command, w *os.File) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
