package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pelagic-data/vessel-mdm/internal/dlq"
	"github.com/pelagic-data/vessel-mdm/internal/reporting"
)

var (
	rejectsBatchID string
	rejectsReason  string
	rejectsLimit   int
	rejectsPurge   bool
)

var rejectsCmd = &cobra.Command{
	Use:   "rejects",
	Short: "Inspect or purge rejected records for a batch",
	Long:  "Lists the rejected records a batch diverted to the local store, with the full original record for repair and replay. --purge deletes them once handled.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		rejects, err := openRejects()
		if err != nil {
			return err
		}
		defer rejects.Close()

		if rejectsPurge {
			n, err := rejects.Purge(ctx, rejectsBatchID)
			if err != nil {
				return err
			}
			zap.L().Info("rejects purged",
				zap.String("batch_id", rejectsBatchID),
				zap.Int64("removed", n))
			return nil
		}

		entries, err := rejects.List(ctx, dlq.Filter{
			BatchID: rejectsBatchID,
			Reason:  rejectsReason,
			Limit:   rejectsLimit,
		})
		if err != nil {
			return err
		}
		return reporting.WriteYAML(os.Stdout, entries)
	},
}

func init() {
	rejectsCmd.Flags().StringVar(&rejectsBatchID, "batch", "", "batch id (required)")
	rejectsCmd.Flags().StringVar(&rejectsReason, "reason", "", "filter by reject reason")
	rejectsCmd.Flags().IntVar(&rejectsLimit, "limit", 100, "maximum rejects to list")
	rejectsCmd.Flags().BoolVar(&rejectsPurge, "purge", false, "delete the batch's rejects instead of listing")
	_ = rejectsCmd.MarkFlagRequired("batch")
	rootCmd.AddCommand(rejectsCmd)
}
