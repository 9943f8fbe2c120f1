package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JaimeStill/followup/internal/followup"
)

var submitFlags struct {
	patients []string
	json     bool
}

var submitCmd = &cobra.Command{
	Use:   "submit [query]",
	Short: "Run a follow-up request and print where each case landed",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringSliceVarP(&submitFlags.patients, "patient", "p", nil, "Patient id to contact; bypasses the directory query (repeatable)")
	f.BoolVar(&submitFlags.json, "json", false, "Print the full report as JSON")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	req := followup.Request{PatientIDs: submitFlags.patients}
	if len(args) == 1 {
		req.Query = args[0]
	}
	if strings.TrimSpace(req.Query) == "" && len(req.PatientIDs) == 0 {
		return errors.New("a query or at least one --patient is required")
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := s.domain.Followups.Submit(ctx, req)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}

	out := cmd.OutOrStdout()
	if submitFlags.json {
		return writeJSON(out, report)
	}

	fmt.Fprintf(out, "Action:  %s\n", report.Criteria.Action)
	fmt.Fprintf(
		out,
		"Summary: %d total, %d completed, %d flagged, %d escalated, %d retrying\n\n",
		report.Summary.Total,
		report.Summary.Completed,
		report.Summary.Flagged,
		report.Summary.Escalated,
		report.Summary.Retrying,
	)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATIENT\tNAME\tSTATUS\tPRIORITY\tACTION\tATTEMPTS\tNOTE")
	for _, o := range report.Cases {
		action := ""
		if o.Decision != nil {
			action = string(o.Decision.Action)
		}
		note := o.Note
		if o.Error != "" {
			note = o.Error
		}
		fmt.Fprintf(
			tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			o.PatientID, o.Name, o.Case.Status, o.Case.Priority, action, o.Attempts, note,
		)
	}
	return tw.Flush()
}

// contextOrBackground guards commands invoked without Execute.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
