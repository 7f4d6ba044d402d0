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
	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/resilience"
	"github.com/sells-group/leadgen-cli/pkg/apollo"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Find and reveal decision-maker contacts for pending leads",
	Long: "Processes up to --batch-size companies that have no settled contact rows yet, ranks " +
		"candidates by title and company size, and reveals them until the credit budget runs out. " +
		"Every company's rows are written as soon as it is done, so an interrupted run loses nothing. " +
		"Exit code 0 on success, 2 on partial failure (including an exhausted budget), 1 on failure.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := enrichOptions(cmd)
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		policy := enrich.PolicyFromConfig(cfg.Enrich)
		client := apollo.NewClient(cfg.Apollo.Key,
			apollo.WithBaseURL(cfg.Apollo.BaseURL),
			apollo.WithSearchRate(cfg.Apollo.SearchRatePerSec),
			apollo.WithMatchRate(cfg.Apollo.RevealRatePerHour),
			apollo.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Apollo.TimeoutSecs) * time.Second}),
		)
		provider := enrich.NewApolloProvider(client, resilience.GuardFromConfig("apollo", cfg.Retry), enrich.ApolloOptions{
			Titles:      policy.SearchTitles(),
			Seniorities: cfg.Apollo.TargetSeniorities,
			PerPage:     cfg.Apollo.SearchPerPage,
		})

		runner := enrich.NewRunner(provider, provider, st, policy,
			enrich.NewResolver(cfg.Enrich.DomainBlocklist), cost.FromConfig(cfg.Pricing))
		sum := runner.Run(ctx, opts)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			return err
		}
		return statusErr(sum.Status)
	},
}

// enrichOptions merges flags over config. --max-contacts overrides the
// per-company cap of the title policy.
func enrichOptions(cmd *cobra.Command) enrich.Options {
	opts := enrich.Options{
		BatchSize:     cfg.Enrich.DefaultBatchSize,
		Budget:        cfg.Enrich.CreditBudget,
		RevealRetries: cfg.Enrich.RevealRetries,
	}
	if n, _ := cmd.Flags().GetInt("batch-size"); n > 0 {
		opts.BatchSize = n
	}
	if n, _ := cmd.Flags().GetInt("budget"); n > 0 {
		opts.Budget = n
	}
	if cmd.Flags().Changed("reveal-retries") {
		opts.RevealRetries, _ = cmd.Flags().GetInt("reveal-retries")
	}
	if n, _ := cmd.Flags().GetInt("max-contacts"); n > 0 {
		cfg.Enrich.MaxContactsPerCompany = n
	}
	opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	return opts
}

func init() {
	enrichCmd.Flags().Bool("dry-run", false, "search and rank only; reveal nothing and write no contacts")
	enrichCmd.Flags().Int("batch-size", 0, "companies to process this run (default from config)")
	enrichCmd.Flags().Int("max-contacts", 0, "contacts to reveal per company (default from config)")
	enrichCmd.Flags().Int("budget", 0, "reveal credits this run may spend (default from config)")
	enrichCmd.Flags().Int("reveal-retries", 0, "retries for a transiently failed reveal (default from config)")
	rootCmd.AddCommand(enrichCmd)
}
