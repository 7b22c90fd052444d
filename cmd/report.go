package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ridepool/config"
	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/core/report"
	"github.com/kilianp07/ridepool/pkg/export"
)

var (
	runID        string
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise or export the trip records of the configured store",
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&runID, "run", "", "only records of this run id")
	reportCmd.Flags().StringVar(&reportFormat, "format", "text", "text, csv or json")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	recs, err := queryRecords(cmd, cfg, records.Query{Kind: records.KindTrip, RunID: runID})
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	switch reportFormat {
	case "text":
		return report.Summarize(recs).Write(out)
	case "csv":
		return export.WriteCSV(out, recs)
	case "json":
		return export.WriteJSON(out, recs)
	default:
		return fmt.Errorf("unknown format %q", reportFormat)
	}
}

func queryRecords(cmd *cobra.Command, cfg *config.Config, q records.Query) ([]records.Record, error) {
	store, err := records.Open(cfg.Logging.Records())
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer func() { _ = store.Close() }()

	recs, err := store.Query(cmd.Context(), q)
	if err != nil {
		return nil, fmt.Errorf("query %s records: %w", q.Kind, err)
	}
	return recs, nil
}
