package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ridepool/core/records"
	"github.com/kilianp07/ridepool/infra/kpi"
	"github.com/kilianp07/ridepool/jobs/ecokpi"
)

var kpiPath string

var backfillCmd = &cobra.Command{
	Use:   "backfill-kpi",
	Short: "Rebuild the daily energy KPIs from logged route history",
	RunE:  runBackfill,
}

func init() {
	backfillCmd.Flags().StringVar(&runID, "run", "", "only records of this run id")
	backfillCmd.Flags().StringVar(&kpiPath, "kpi-db", "eco_kpi.db", "SQLite file of the KPI ledger")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	legs, err := queryRecords(cmd, cfg, records.Query{Kind: records.KindLeg, RunID: runID})
	if err != nil {
		return err
	}
	store, err := kpi.NewSQLiteStore(kpiPath)
	if err != nil {
		return fmt.Errorf("open kpi store: %w", err)
	}
	defer func() { _ = store.Close() }()

	n, err := ecokpi.Backfill(store, legs, cfg.Vehicle.Energy())
	if err != nil {
		return fmt.Errorf("backfill: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d driven legs added to %s\n", n, kpiPath)
	return nil
}
