package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/campus-events-crawler/internal/media"
)

type repairFlags struct {
	dryRun   bool
	limit    int
	pageSize int
	delay    time.Duration
}

func newRepairCmd() *cobra.Command {
	flags := &repairFlags{}
	cmd := &cobra.Command{
		Use:   "repair-images",
		Short: "Replace placeholder thumbnails with searched photos",
		Long: `Scans stored events whose thumbnail is missing or a fallback placeholder,
searches the photo API for "<title> <category>", re-hosts the top result,
and updates the event. Requires the photo API key.`,
		Args: cobra.NoArgs,
		RunE: withSession(func(cmd *cobra.Command, rt *session) error {
			return runRepair(cmd, rt, flags)
		}),
	}
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().IntVar(&flags.limit, "limit", media.DefaultRepairLimit, "maximum events to process")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 100, "events fetched per page while scanning")
	cmd.Flags().DurationVar(&flags.delay, "delay", media.DefaultRepairDelay, "pause between photo searches")
	return cmd
}

func runRepair(cmd *cobra.Command, rt *session, flags *repairFlags) error {
	repairer, err := rt.services.ImageRepairer()
	if err != nil {
		return err
	}
	stats, err := repairer.Run(cmd.Context(), media.RepairOptions{
		DryRun:   flags.dryRun,
		Limit:    flags.limit,
		PageSize: flags.pageSize,
		Delay:    flags.delay,
	})
	if err != nil {
		return fmt.Errorf("repair failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		return fmt.Errorf("print stats: %w", err)
	}
	return nil
}
