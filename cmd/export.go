package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write leads and revealed contacts to an XLSX workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		out, _ := cmd.Flags().GetString("out")
		since, _ := cmd.Flags().GetString("since")
		region, _ := cmd.Flags().GetString("region")

		if err := cfg.Validate("export"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		leads, err := st.ReadLeads(ctx)
		if err != nil {
			return eris.Wrap(err, "export: read leads")
		}
		rows, err := st.ReadContacts(ctx)
		if err != nil {
			return eris.Wrap(err, "export: read contacts")
		}

		stats, err := export.Save(out, leads, rows, export.Options{Since: since, Region: region})
		if err != nil {
			return err
		}
		zap.L().Info("export complete",
			zap.String("path", out),
			zap.Int("contacts", stats.Contacts),
			zap.Int("companies", stats.Companies),
			zap.Int("pending", stats.Pending),
		)
		fmt.Fprintf(os.Stderr, "Wrote %d contacts across %d companies (%d pending) to %s\n",
			stats.Contacts, stats.Companies, stats.Pending, out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "contacts.xlsx", "output workbook path")
	exportCmd.Flags().String("since", "", "only contacts revealed on or after this run date (YYYY-MM-DD)")
	exportCmd.Flags().String("region", "", "only leads from this region")
	rootCmd.AddCommand(exportCmd)
}
