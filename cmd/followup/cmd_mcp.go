package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/followup/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the follow-up tools over MCP on stdin/stdout",
	Long: `Starts an MCP server over stdin/stdout exposing submit_followup, get_case,
review_case and list_audit. Logs go to stderr so stdout carries only protocol
messages.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, _ []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcp.NewServer(s.cfg.Version, mcp.Deps{
		Followups: s.domain.Followups,
		Cases:     s.domain.Cases,
		Trail:     s.domain.Trail,
		Logger:    s.infra.Logger,
	})
	return srv.Run(ctx)
}
