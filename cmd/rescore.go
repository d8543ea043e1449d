package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pelagic-data/vessel-mdm/internal/trust"
)

var rescoreVessels []string

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute trust scores for specific vessels",
	Long:  "Recomputes the composite trust score for the given vessel ids, e.g. after recording a reputation event by hand.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := trust.ValidateConfig(cfg.Trust); err != nil {
			return err
		}

		repo, pool, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		scorer := trust.NewScorer(repo, cfg.Trust, cfg.Sources)
		n, err := scorer.RecomputeAll(ctx, rescoreVessels)
		if err != nil {
			return eris.Wrap(err, "rescore")
		}

		zap.L().Info("rescore complete", zap.Int("vessels", n))
		return nil
	},
}

func init() {
	rescoreCmd.Flags().StringSliceVar(&rescoreVessels, "vessel", nil, "vessel id to rescore (repeatable, required)")
	_ = rescoreCmd.MarkFlagRequired("vessel")
	rootCmd.AddCommand(rescoreCmd)
}
