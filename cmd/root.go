package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/config"
	"github.com/sells-group/leadgen-cli/internal/model"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "leadgen-cli",
	Short: "Lead ingest and contact enrichment for local businesses",
	Long: "Pulls local businesses from map search into a lead sheet every day, then finds and reveals " +
		"decision-maker contacts for them under a per-run credit budget.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// runStatusError carries a non-success run status out of a command so main
// can exit with the matching code after deferred cleanup has run.
type runStatusError struct {
	status model.RunStatus
}

func (e *runStatusError) Error() string {
	return fmt.Sprintf("run finished with status %s", e.status)
}

func statusErr(status model.RunStatus) error {
	if status == model.RunStatusSuccess {
		return nil
	}
	return &runStatusError{status: status}
}

func exitCode(err error) int {
	if err == nil {
		return model.ExitSuccess
	}
	var se *runStatusError
	if errors.As(err, &se) {
		return se.status.ExitCode()
	}
	return model.ExitFailed
}

func main() {
	os.Exit(exitCode(rootCmd.Execute()))
}
