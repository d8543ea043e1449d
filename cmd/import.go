package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pelagic-data/vessel-mdm/internal/model"
	"github.com/pelagic-data/vessel-mdm/internal/pipeline"
	"github.com/pelagic-data/vessel-mdm/internal/registry"
)

var (
	importSource string
	importFile   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import one registry source file as a versioned batch",
	Long:  "Runs the full import pipeline on a staged CSV or XLSX file: validate, dedupe, resolve against the canonical registry, rescore trust, and snapshot. Re-importing a byte-identical file is a no-op.",
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

		engine := pipeline.New(cfg, repo, registry.NewReference(pool), rejects)
		summary, err := engine.Run(ctx, importSource, importFile)
		if err != nil {
			if eris.Is(err, model.ErrAlreadyImported) {
				zap.L().Info("file already imported, nothing to do",
					zap.String("source", importSource),
					zap.String("file", importFile))
				return nil
			}
			return eris.Wrap(err, "import")
		}

		zap.L().Info("import complete",
			zap.String("batch_id", summary.BatchID),
			zap.Int("input", summary.InputCount),
			zap.Int("resolved", summary.ResolvedCount),
			zap.Int("rejected", summary.RejectedCount),
			zap.Int("created_vessels", summary.CreatedVessels),
			zap.Int("conflicts", summary.Conflicts))
		for _, w := range summary.Warnings {
			zap.L().Warn("batch warning",
				zap.String("type", w.Type),
				zap.String("detail", w.Detail),
				zap.Int("count", w.Count))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSource, "source", "", "source registry name (required)")
	importCmd.Flags().StringVar(&importFile, "file", "", "path to staged CSV or XLSX file (required)")
	_ = importCmd.MarkFlagRequired("source")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
