package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pelagic-data/vessel-mdm/internal/reporting"
)

var (
	reportBatchID  string
	reportVesselID string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a registry, batch, or vessel report as YAML",
	Long:  "Without flags, prints the registry-wide report: vessel counts, trust score distribution, AI-export readiness, and the most conflicted fields. With --batch or --vessel, prints that entity's report instead.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		repo, pool, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		rejects, err := openRejects()
		if err != nil {
			return err
		}
		defer rejects.Close()

		reporter := reporting.NewReporter(repo, rejects, cfg.Trust)

		switch {
		case reportBatchID != "":
			r, err := reporter.BatchReport(ctx, reportBatchID)
			if err != nil {
				return err
			}
			return reporting.WriteYAML(os.Stdout, r)
		case reportVesselID != "":
			r, err := reporter.VesselReport(ctx, reportVesselID)
			if err != nil {
				return err
			}
			return reporting.WriteYAML(os.Stdout, r)
		default:
			r, err := reporter.RegistryReport(ctx)
			if err != nil {
				return err
			}
			return reporting.WriteYAML(os.Stdout, r)
		}
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportBatchID, "batch", "", "batch id to report on")
	reportCmd.Flags().StringVar(&reportVesselID, "vessel", "", "vessel id to report on")
	reportCmd.MarkFlagsMutuallyExclusive("batch", "vessel")
	rootCmd.AddCommand(reportCmd)
}
