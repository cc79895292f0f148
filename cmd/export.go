package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/permit-leads/internal/export"
	"github.com/sells-group/permit-leads/internal/model"
	"github.com/sells-group/permit-leads/internal/store"
)

var (
	exportFormat   string
	exportOutput   string
	exportPriority string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored permit batch to a file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter := store.PermitFilter{}
		if exportPriority != "" {
			p := model.LeadPriority(exportPriority)
			if !p.Valid() {
				return eris.Errorf("export: invalid priority %q", exportPriority)
			}
			filter.Priority = p
		}

		total, err := st.CountPermits(cmd.Context(), filter)
		if err != nil {
			return eris.Wrap(err, "export: count permits")
		}
		if total == 0 {
			return eris.New("export: no permits stored; run the pipeline first")
		}
		filter.Limit = total

		permits, err := st.ListPermits(cmd.Context(), filter)
		if err != nil {
			return eris.Wrap(err, "export: list permits")
		}

		f, err := os.Create(exportOutput)
		if err != nil {
			return eris.Wrap(err, "export: create output file")
		}
		defer f.Close() //nolint:errcheck

		switch exportFormat {
		case "csv":
			err = export.WriteCSV(f, permits)
		case "xlsx":
			err = export.WriteXLSX(f, permits)
		default:
			return eris.Errorf("export: unknown format %q", exportFormat)
		}
		if err != nil {
			return err
		}

		zap.L().Info("export: complete",
			zap.String("output", exportOutput),
			zap.String("format", exportFormat),
			zap.Int("permits", len(permits)),
		)
		cmd.Printf("exported %d permits to %s\n", len(permits), exportOutput)

		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv or xlsx")
	exportCmd.Flags().StringVar(&exportOutput, "output", "permit_leads.csv", "output file path")
	exportCmd.Flags().StringVar(&exportPriority, "priority", "", "only export leads with this priority")
	rootCmd.AddCommand(exportCmd)
}
