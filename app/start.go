package app

import (
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/spark-admin/spark-admin/internal/daemon"
	"github.com/spark-admin/spark-admin/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	startCmd.Flags().BoolVar(
		&browseStatic,
		"browse",
		false,
		"Enable static file browsing (for development purposes only)",
	)

	startCmd.Flags().BoolVar(&fastShutDown, "fast-shutdown", false, "Skip the checkalive grace period on shutdown")

	rootCmd.AddCommand(startCmd)
}

var (
	devMode      bool
	browseStatic bool
	fastShutDown bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the SPARK Admin web service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(cmd, args); err != nil {
				return err
			}

			if devMode {
				cfg.DevMode = true
			}

			if browseStatic {
				cfg.Webserver.BrowseStatic = true
			}

			return logger.Init(cfg.Log)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d, err := daemon.New(ctx, &cfg)
			if err != nil {
				log.Error().Err(err).Msg("failed to start")
				return err
			}

			if fastShutDown {
				d.FastShutDown()
			}

			return d.Run(ctx)
		},
	}
)

