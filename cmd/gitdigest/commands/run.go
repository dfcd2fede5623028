package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nnamdiodozi/gitdigest/dbopen"
	"github.com/nnamdiodozi/gitdigest/ingest"
	"github.com/nnamdiodozi/gitdigest/llm"
	"github.com/nnamdiodozi/gitdigest/runstore"
	"github.com/nnamdiodozi/gitdigest/server"
	"github.com/nnamdiodozi/gitdigest/triage"
)

// newRunCmd creates the `gitdigest run` command for one-shot digests.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Digest a repository once and print the result",
		Long: `Clone a repository, write its digest to the output directory, and
optionally summarize it with the configured LLM provider.

Examples:
  gitdigest run -u https://github.com/golang/go
  gitdigest run -u https://github.com/org/private -t $GITHUB_TOKEN -b develop
  gitdigest run -u https://github.com/golang/go -c -w 500 -f "focus on the runtime"`,
		RunE: runRun,
	}

	cmd.Flags().StringP("url", "u", "", "GitHub repository URL (required)")
	cmd.Flags().StringP("token", "t", "", "GitHub access token for private repositories")
	cmd.Flags().StringP("branch", "b", "", "branch to digest instead of the default")
	cmd.Flags().Int64P("max-size", "m", 0, "maximum file size in bytes to include")
	cmd.Flags().IntP("word-count", "w", 0, "target word count for the summary")
	cmd.Flags().BoolP("call-llm-api", "c", false, "summarize the digest with the LLM provider")
	cmd.Flags().StringArrayP("exclude-pattern", "e", nil, "extra exclude pattern (repeatable)")
	cmd.Flags().StringP("focus", "f", "", "extra instruction appended to the summary prompt")
	cmd.Flags().Bool("no-triage", false, "send the full digest without trimming")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, os.Stderr)

	url, _ := cmd.Flags().GetString("url")
	token, _ := cmd.Flags().GetString("token")
	branch, _ := cmd.Flags().GetString("branch")
	maxSize, _ := cmd.Flags().GetInt64("max-size")
	wordCount, _ := cmd.Flags().GetInt("word-count")
	callLLM, _ := cmd.Flags().GetBool("call-llm-api")
	excludes, _ := cmd.Flags().GetStringArray("exclude-pattern")
	focus, _ := cmd.Flags().GetString("focus")
	noTriage, _ := cmd.Flags().GetBool("no-triage")

	engineCfg := cfg.Triage.Engine
	engineCfg.Logger = logger
	engine, err := triage.New(engineCfg)
	if err != nil {
		return fmt.Errorf("triage engine: %w", err)
	}

	ingestCfg := cfg.IngestConfig()
	ingestCfg.Logger = logger
	runner := ingest.NewRunner(ingestCfg)

	var summarizer server.Summarizer
	if callLLM {
		client, err := llm.NewClient(cfg.ProviderConfig())
		if err != nil {
			if errors.Is(err, llm.ErrMissingAPIKey) {
				return fmt.Errorf("summarization requires an API key: %w", err)
			}
			return fmt.Errorf("llm client: %w", err)
		}
		summarizer = client
	}

	runsDB, err := dbopen.Open(cfg.Storage.RunsDB,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(runstore.Schema))
	if err != nil {
		return fmt.Errorf("open runs db: %w", err)
	}
	defer runsDB.Close()

	srv := server.New(cfg, server.Deps{
		Ingester:   runner,
		Engine:     engine,
		Summarizer: summarizer,
		Runs:       runstore.NewStore(runsDB),
		Logger:     logger,
	})

	if wordCount <= 0 {
		wordCount = cfg.Digest.DefaultWordCount
	}
	res, err := srv.RunDigest(cmd.Context(), server.RunRequest{
		URL:             url,
		Token:           token,
		Branch:          branch,
		MaxSize:         maxSize,
		WordCount:       wordCount,
		CallLLM:         callLLM,
		Triage:          !noTriage,
		ExcludePatterns: excludes,
		Focus:           focus,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Digest written to %s\n", res.OutputFile)
	fmt.Fprintf(out, "Branch: %s\n", res.Branch)
	fmt.Fprintf(out, "Files: %d  Lines: %d  Estimated tokens: %d\n",
		res.DigestStats.FileCount, res.DigestStats.Lines, res.DigestStats.EstimatedTokens)
	if res.Triage != nil && res.Triage.Applied {
		fmt.Fprintf(out, "Trimmed %d -> %d estimated tokens (%d files dropped)\n",
			res.Triage.PreTriageTokens, res.Triage.PostTriageTokens, res.Triage.FilesDroppedCount)
	}
	if res.Summary != "" {
		fmt.Fprintf(out, "\n%s\n", res.Summary)
	}
	return nil
}
