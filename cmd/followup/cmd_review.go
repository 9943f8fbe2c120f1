package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/followup/internal/followup"
)

var reviewFlags struct {
	action string
	by     string
	notes  string
}

var reviewCmd = &cobra.Command{
	Use:   "review <patient-id>",
	Short: "Resolve a case flagged for doctor review",
	Args:  cobra.ExactArgs(1),
	RunE:  runReview,
}

func init() {
	f := reviewCmd.Flags()
	f.StringVar(&reviewFlags.action, "action", "", "CLOSE_LOOP or ESCALATE_URGENT (required)")
	f.StringVar(&reviewFlags.by, "by", "", "Reviewing clinician (required)")
	f.StringVar(&reviewFlags.notes, "notes", "", "Review notes")

	_ = reviewCmd.MarkFlagRequired("action")
	_ = reviewCmd.MarkFlagRequired("by")
}

func runReview(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	c, err := s.domain.Followups.Review(contextOrBackground(cmd), args[0], followup.ReviewCommand{
		Action:     reviewFlags.action,
		ReviewedBy: reviewFlags.by,
		Notes:      reviewFlags.notes,
	})
	if err != nil {
		return fmt.Errorf("review %s: %w", args[0], err)
	}

	printCase(cmd, c)
	return nil
}
