// followup is the follow-up service and its command-line client. It serves
// the HTTP API, runs requests in process against the configured stores,
// serves the MCP tools over stdio, and hosts the mock patient database.
//
// Usage:
//
//	followup serve --port 8080
//	followup submit "follow up with diabetes patients from last week"
//	followup submit --patient PAT001 --patient PAT003 --json
//	followup case PAT003
//	followup review PAT001 --action CLOSE_LOOP --by dr.grey
//	followup audit --patient PAT003
//	followup mcp
//	followup migrate up --dsn postgres://followup@localhost:5432/followup
//	followup mockdb --addr :3000 --seed patients.yaml --watch
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	config string
}

var rootCmd = &cobra.Command{
	Use:   "followup",
	Short: "Route post-visit patient follow-ups",
	Long: "followup contacts the patients a doctor's request names, classifies each\n" +
		"interaction, and routes the case to closure, review, retry or escalation.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rootFlags.config, "config", "c", "config.toml", "Base configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(caseCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(mockdbCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
