package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Long: `Scrapes every source concurrently, normalizes the combined listings, stores
the new events, and prints the run report. Exits non-zero only when every
source failed or the normalizer could not start. With the hosted backend, the
photo API key must be configured as well.`,
		Args: cobra.NoArgs,
		RunE: withSession(runPipeline),
	}
}

func runPipeline(cmd *cobra.Command, rt *session) error {
	runner, err := rt.services.Runner()
	if err != nil {
		return err
	}
	report, err := runner.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("print report: %w", err)
	}
	rt.logger.Info("run command finished", zap.Int("events_added", report.EventsAdded))
	return nil
}
