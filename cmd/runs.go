package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/monitoring"
	"github.com/sells-group/leadgen-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect ingest and enrichment run history",
	Long:  "Commands for listing, viewing, and summarizing run logs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		kind, _ := cmd.Flags().GetString("kind")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		logs, err := st.ListRunLogs(ctx, store.RunLogFilter{
			Kind:   model.RunKind(kind),
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(logs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, logs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the full summary of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		logs, err := st.ListRunLogs(ctx, store.RunLogFilter{Limit: 1000})
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		rl, ok := findRun(logs, args[0])
		if !ok {
			return eris.Errorf("runs show: run %s not found", args[0])
		}
		return writeSummary(os.Stdout, rl)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("runs"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		hours := max(int(since.Hours()), 1)

		snap, err := monitoring.NewCollector(st).Collect(ctx, hours)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}
		formatRunStats(os.Stdout, snap)
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("kind", "", "filter by run kind (ingest, enrichment)")
	runsListCmd.Flags().String("status", "", "filter by run status (SUCCESS, PARTIAL_FAILURE, FAILED)")
	runsListCmd.Flags().Int("limit", 20, "max number of runs to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// findRun matches a full run id or a unique prefix of one.
func findRun(logs []model.RunLog, id string) (model.RunLog, bool) {
	var match model.RunLog
	found := 0
	for _, rl := range logs {
		if rl.RunID == id {
			return rl, true
		}
		if len(id) >= 8 && len(rl.RunID) > len(id) && rl.RunID[:len(id)] == id {
			match = rl
			found++
		}
	}
	return match, found == 1
}

func writeSummary(out io.Writer, rl model.RunLog) error {
	var summary any
	if err := json.Unmarshal(rl.Summary, &summary); err != nil {
		summary = string(rl.Summary)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"kind":    rl.Kind,
		"run_id":  rl.RunID,
		"status":  rl.Status,
		"summary": summary,
	})
}

// formatRunsList writes a tabular list of runs to out.
func formatRunsList(out io.Writer, logs []model.RunLog) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tKIND\tSTATUS\tSTARTED\tDETAIL")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-------\t------")

	for _, rl := range logs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(rl.RunID),
			rl.Kind,
			rl.Status,
			rl.StartedAt.UTC().Format("2006-01-02 15:04"),
			runDetail(rl),
		)
	}
	_ = w.Flush()
}

// runDetail is the one-line headline of a run's summary.
func runDetail(rl model.RunLog) string {
	switch rl.Kind {
	case model.RunKindIngest:
		var s model.IngestSummary
		if json.Unmarshal(rl.Summary, &s) != nil {
			return ""
		}
		return fmt.Sprintf("%d new / %d scraped, %d/%d queries ok",
			s.NewAppended, s.TotalScraped, s.QueriesSucceeded, s.QueriesAttempted)
	case model.RunKindEnrichment:
		var s model.EnrichmentSummary
		if json.Unmarshal(rl.Summary, &s) != nil {
			return ""
		}
		detail := fmt.Sprintf("%d companies, %d contacts, %d credits",
			s.LeadsProcessed, s.ContactsEnriched, s.CreditsUsed)
		if s.DryRun {
			detail += " (dry run)"
		}
		if s.BudgetExhausted {
			detail += ", budget exhausted"
		}
		return detail
	default:
		return ""
	}
}

// formatRunStats writes aggregate stats to out.
func formatRunStats(out io.Writer, s *monitoring.Snapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Window:\t%dh\n", s.LookbackHours)
	_, _ = fmt.Fprintf(w, "Total runs:\t%d\n", s.TotalRuns)
	for _, rc := range s.Runs {
		_, _ = fmt.Fprintf(w, "  %s %s:\t%d\n", rc.Kind, rc.Status, rc.Count)
	}
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.FailedRuns)
	_, _ = fmt.Fprintf(w, "Leads appended:\t%d\n", s.LeadsAppended)
	_, _ = fmt.Fprintf(w, "Contacts enriched:\t%d\n", s.ContactsEnriched)
	_, _ = fmt.Fprintf(w, "Credits used:\t%d\n", s.CreditsUsed)
	if s.BudgetExhaustedRuns > 0 {
		_, _ = fmt.Fprintf(w, "Budget exhausted:\t%d runs\n", s.BudgetExhaustedRuns)
	}
	_, _ = fmt.Fprintf(w, "Est. cost:\t$%.2f\n", s.CostUSD)
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
