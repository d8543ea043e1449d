package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pelagic-data/vessel-mdm/internal/model"
	"github.com/pelagic-data/vessel-mdm/internal/trust"
)

var (
	repVesselID   string
	repSource     string
	repKind       string
	repSeverity   float64
	repOccurredAt string
	repLiftedAt   string
)

var reputationCmd = &cobra.Command{
	Use:   "reputation",
	Short: "Record a reputation event against a vessel",
	Long:  "Appends a negative reputation event (blacklist, detention, or violation) to a vessel's history and recomputes its trust score.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		occurred, err := time.Parse("2006-01-02", repOccurredAt)
		if err != nil {
			return eris.Wrap(err, "parse --occurred")
		}
		var lifted *time.Time
		if repLiftedAt != "" {
			t, err := time.Parse("2006-01-02", repLiftedAt)
			if err != nil {
				return eris.Wrap(err, "parse --lifted")
			}
			lifted = &t
		}

		switch repKind {
		case "blacklist", "detention", "violation":
		default:
			return eris.Errorf("unknown event kind %q", repKind)
		}

		repo, pool, err := openRepo(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := repo.AppendReputationEvent(ctx, model.ReputationEvent{
			VesselID:   repVesselID,
			Source:     repSource,
			Kind:       repKind,
			Severity:   repSeverity,
			OccurredAt: occurred,
			LiftedAt:   lifted,
		}); err != nil {
			return err
		}

		scorer := trust.NewScorer(repo, cfg.Trust, cfg.Sources)
		score, err := scorer.Recompute(ctx, repVesselID)
		if err != nil {
			return err
		}

		zap.L().Info("reputation event recorded",
			zap.String("vessel_id", repVesselID),
			zap.String("kind", repKind),
			zap.Float64("trust", score.Score))
		return nil
	},
}

func init() {
	reputationCmd.Flags().StringVar(&repVesselID, "vessel", "", "vessel id (required)")
	reputationCmd.Flags().StringVar(&repSource, "source", "", "reporting source (required)")
	reputationCmd.Flags().StringVar(&repKind, "kind", "", "blacklist | detention | violation (required)")
	reputationCmd.Flags().Float64Var(&repSeverity, "severity", 0.5, "event severity in [0,1]")
	reputationCmd.Flags().StringVar(&repOccurredAt, "occurred", "", "event date, YYYY-MM-DD (required)")
	reputationCmd.Flags().StringVar(&repLiftedAt, "lifted", "", "date the listing was lifted, YYYY-MM-DD")
	_ = reputationCmd.MarkFlagRequired("vessel")
	_ = reputationCmd.MarkFlagRequired("source")
	_ = reputationCmd.MarkFlagRequired("kind")
	_ = reputationCmd.MarkFlagRequired("occurred")
	rootCmd.AddCommand(reputationCmd)
}
