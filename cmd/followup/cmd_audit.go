package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/followup/internal/audit"
	"github.com/JaimeStill/followup/pkg/formatting"
	"github.com/JaimeStill/followup/pkg/pagination"
)

var auditFlags struct {
	patient string
	session string
	limit   int
	verify  string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recent audit entries or verify a JSONL audit file",
	Args:  cobra.NoArgs,
	RunE:  runAudit,
}

func init() {
	f := auditCmd.Flags()
	f.StringVarP(&auditFlags.patient, "patient", "p", "", "Only entries for this patient")
	f.StringVar(&auditFlags.session, "session", "", "Only entries for this session")
	f.IntVarP(&auditFlags.limit, "limit", "n", 20, "Maximum entries to list")
	f.StringVar(&auditFlags.verify, "verify", "", "Verify the checksums of a JSONL audit file and exit")
}

func runAudit(cmd *cobra.Command, _ []string) error {
	if auditFlags.verify != "" {
		return verifyAudit(cmd, auditFlags.verify)
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	var filters audit.Filters
	if auditFlags.patient != "" {
		filters.PatientID = &auditFlags.patient
	}
	if auditFlags.session != "" {
		filters.SessionID = &auditFlags.session
	}

	page, err := s.domain.Trail.List(
		contextOrBackground(cmd),
		pagination.PageRequest{Page: 1, PageSize: auditFlags.limit},
		filters,
	)
	if err != nil {
		return fmt.Errorf("list audit: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tPATIENT\tKIND\tACTION\tRULE\tTRANSITION\tNOTE")
	for _, e := range page.Data {
		fmt.Fprintf(
			tw, "%s\t%s\t%s\t%s\t%s\t%s -> %s\t%s\n",
			e.RecordedAt.Format(time.RFC3339), e.PatientID, e.Kind, e.Decision.Action,
			e.Rule, e.StatusBefore, e.StatusAfter, e.Note,
		)
	}
	fmt.Fprintf(tw, "\n%d of %d entries\n", len(page.Data), page.Total)
	return tw.Flush()
}

func verifyAudit(cmd *cobra.Command, path string) error {
	v, err := audit.VerifyFile(path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", path, err)
	}
	size := "?"
	if info, err := os.Stat(path); err == nil {
		size = formatting.FormatBytes(info.Size(), 1)
	}
	fmt.Fprintf(
		cmd.OutOrStdout(),
		"%s (%s): %d entries, %d valid, %d tampered, %d malformed\n",
		path, size, v.Total, v.Valid, v.Tampered, v.Malformed,
	)
	if !v.OK() {
		return fmt.Errorf("audit file %s failed verification", path)
	}
	return nil
}
