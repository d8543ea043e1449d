package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pelagic-data/vessel-mdm/internal/config"
	"github.com/pelagic-data/vessel-mdm/internal/db"
	"github.com/pelagic-data/vessel-mdm/internal/dlq"
	"github.com/pelagic-data/vessel-mdm/internal/registry"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "vessel-mdm",
	Short: "Vessel registry master data engine",
	Long:  "Imports national and regional vessel registry files into a canonical, versioned vessel registry with identity resolution, conflict tracking, and trust scoring.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// openPool connects to Postgres using the configured sizing.
func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	return db.Connect(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
}

// openRepo connects and wraps the pool in the registry repository.
func openRepo(ctx context.Context) (*registry.Repository, *pgxpool.Pool, error) {
	pool, err := openPool(ctx)
	if err != nil {
		return nil, nil, err
	}
	return registry.NewRepository(pool), pool, nil
}

// openRejects opens the local reject store.
func openRejects() (*dlq.Store, error) {
	return dlq.Open(cfg.DLQ.Path)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
