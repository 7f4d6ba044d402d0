package main

import (
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/cost"
	"github.com/sells-group/leadgen-cli/internal/ingest"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/google"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pull businesses from map search and append new leads",
	Long: "Runs every query of the query plan against the map-search provider, drops leads that are " +
		"already stored, appends the rest and writes one ingest log row. Exit code 0 on success, " +
		"2 on partial failure, 1 on failure.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		queryFile, _ := cmd.Flags().GetString("queries")
		if queryFile != "" {
			cfg.Ingest.QueryFile = queryFile
		}
		if n, _ := cmd.Flags().GetInt("concurrency"); n > 0 {
			cfg.Ingest.Concurrency = n
		}
		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		plan, err := ingest.LoadQueryPlan(cfg.Ingest.QueryFile)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		client := google.NewClient(cfg.Places.Key,
			google.WithBaseURL(cfg.Places.BaseURL),
			google.WithRateLimit(cfg.Places.RateLimitPerSec),
			google.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Places.TimeoutSecs) * time.Second}),
		)
		source := ingest.NewPlacesSource(client, resilience.GuardFromConfig("places", cfg.Retry), ingest.PlacesOptions{
			ResultsPerQuery: cfg.Places.ResultsPerQuery,
			MaxPages:        cfg.Places.MaxPagesPerQuery,
			Language:        cfg.Places.Language,
			Region:          cfg.Places.Region,
		})

		runner := ingest.NewRunner(source, st, cost.FromConfig(cfg.Pricing), cfg.Ingest.Concurrency)
		sum := runner.Run(ctx, plan.Queries())

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			return err
		}
		return statusErr(sum.Status)
	},
}

func init() {
	ingestCmd.Flags().String("queries", "", "query plan YAML file (default from config)")
	ingestCmd.Flags().Int("concurrency", 0, "queries in flight at once (default from config)")
	rootCmd.AddCommand(ingestCmd)
}
