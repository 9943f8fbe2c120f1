package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/followup/internal/routing"
)

var caseFlags struct {
	json bool
}

var caseCmd = &cobra.Command{
	Use:   "case <patient-id>",
	Short: "Show a patient's follow-up case",
	Args:  cobra.ExactArgs(1),
	RunE:  runCase,
}

func init() {
	caseCmd.Flags().BoolVar(&caseFlags.json, "json", false, "Print the case as JSON")
}

func runCase(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	c, err := s.domain.Cases.Get(contextOrBackground(cmd), args[0])
	if err != nil {
		return fmt.Errorf("case %s: %w", args[0], err)
	}

	if caseFlags.json {
		return writeJSON(cmd.OutOrStdout(), c)
	}
	printCase(cmd, c)
	return nil
}

func printCase(cmd *cobra.Command, c routing.Case) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Patient:  %s\n", c.PatientID)
	fmt.Fprintf(out, "Status:   %s\n", c.Status)
	fmt.Fprintf(out, "Priority: %s\n", c.Priority)
	fmt.Fprintf(out, "Attempts: %d (retries %d)\n", c.Attempts, c.RetryCount)
	if c.Notify {
		fmt.Fprintf(out, "Notify:   care team\n")
	}
	if d := c.LastDecision; d != nil {
		fmt.Fprintf(out, "Decision: %s (%.2f) %s\n", d.Action, d.Confidence, d.Rationale)
	}
	printTime(cmd, "Next:", c.NextFollowUp)
	printTime(cmd, "Retry:", c.RetryAt)
	if c.ReviewedBy != nil {
		fmt.Fprintf(out, "Reviewer: %s\n", *c.ReviewedBy)
	}
	printTime(cmd, "Reviewed:", c.ReviewedAt)
}

func printTime(cmd *cobra.Command, label string, t *time.Time) {
	if t == nil {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-9s %s\n", label, t.Format(time.RFC3339))
}
