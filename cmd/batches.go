package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/pelagic-data/vessel-mdm/internal/reporting"
)

var (
	batchesSource string
	batchesLimit  int
)

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List import batches for a source",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		repo, pool, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		batches, err := repo.ListBatches(ctx, batchesSource, batchesLimit)
		if err != nil {
			return err
		}
		return reporting.WriteYAML(os.Stdout, batches)
	},
}

func init() {
	batchesCmd.Flags().StringVar(&batchesSource, "source", "", "source registry name (required)")
	batchesCmd.Flags().IntVar(&batchesLimit, "limit", 20, "maximum batches to list")
	_ = batchesCmd.MarkFlagRequired("source")
	rootCmd.AddCommand(batchesCmd)
}
