// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/spark-admin/spark-admin/internal/config"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "etc/main.toml"

var (
	configPath string // Path to the configuration file

	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "spark-admin",
		Short: "SPARK Admin is the back office of the SPARK college platform",
		Long: `SPARK Admin is the back office of the SPARK college platform.
It manages staff roles, their permissions, role assignment of users
and keeps an activity log of every administrative change.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", DefaultConfigPath, "Path to the TOML configuration file")
}

// loadConfig reads the configuration file into cfg.
func loadConfig(_ *cobra.Command, _ []string) error {
	var err error

	cfg, err = config.ReadConfig(configPath)

	return err
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
