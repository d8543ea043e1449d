package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pelagic-data/vessel-mdm/internal/reporting"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only reporting server",
	Long:  "Serves batch reports, vessel detail, and registry-wide statistics over HTTP. The server never mutates registry state; imports stay on the CLI.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

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

		serverCfg := cfg.Server
		if servePort != 0 {
			serverCfg.Port = servePort
		}

		reporter := reporting.NewReporter(repo, rejects, cfg.Trust)
		srv := reporting.NewServer(reporter, repo, rejects, serverCfg)
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
