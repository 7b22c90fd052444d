package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/ridepool/app"
	"github.com/kilianp07/ridepool/config"
	"github.com/kilianp07/ridepool/infra/logger"
)

var (
	cfgPath  string
	startAt  string
	endAt    string
	serveAPI bool
	logFile  io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "ridepool",
	Short: "Ride-pooling fleet simulation",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.Flags().StringVar(&startAt, "start", "", "simulation start, overrides simulation.start")
	rootCmd.Flags().StringVar(&endAt, "end", "", "simulation end, overrides simulation.end")
	rootCmd.Flags().BoolVar(&serveAPI, "serve", false, "keep the HTTP endpoints up after the run")
	rootCmd.PersistentPostRunE = closeLog
}

func closeLog(*cobra.Command, []string) error {
	if logFile != nil {
		return logFile.Close()
	}
	return nil
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logFile = logger.Configure(cfg.Logging.Output())
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if startAt != "" {
		cfg.Simulation.Start = startAt
	}
	if endAt != "" {
		cfg.Simulation.End = endAt
	}
	if err := cfg.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation window: %w", err)
	}

	svc, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("main").Errorf("service close: %v", err)
		}
	}()
	sum, err := svc.Run(ctx, serveAPI)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d requests, %d completed, %d failed, %d user busy, %d open, %d outside window\n",
		svc.RunID, sum.Total, sum.Completed, sum.Failed, sum.FailedUserBusy, sum.Open, sum.Skipped)
	return nil
}
