package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/nnamdiodozi/gitdigest/triage"
)

// newMCPCmd creates the `gitdigest mcp` command serving triage tools over stdio.
func newMCPCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the triage tools over MCP stdio",
		Long: `Expose digest_triage, digest_classify, and digest_estimate as MCP tools
over stdin/stdout (JSON-RPC 2.0), for use from MCP-capable clients.

Client configuration (.mcp.json):
  {
    "mcpServers": {
      "gitdigest": {
        "command": "gitdigest",
        "args": ["mcp"]
      }
    }
  }`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			// stdout carries the protocol; logs go to stderr.
			logger := newLogger(cmd, os.Stderr)

			engineCfg := cfg.Triage.Engine
			engineCfg.Logger = logger
			engine, err := triage.New(engineCfg)
			if err != nil {
				return fmt.Errorf("triage engine: %w", err)
			}

			srv := mcp.NewServer(&mcp.Implementation{
				Name:    "gitdigest",
				Version: version,
			}, nil)
			engine.RegisterMCP(srv)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("MCP server starting on stdio")
			if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}
}
