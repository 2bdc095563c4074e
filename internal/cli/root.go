package cli

import (
	"os"

	"pokernight/internal/config"
	"pokernight/pkg/logger"

	"github.com/spf13/cobra"
)

var configPath string

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pokernight",
		Short: "Poker night player and balance tracker",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			config.GlobalConfig = cfg
			return logger.InitLogger(cfg.Server.Mode, cfg.Log.Level)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Log.Sync()
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newPlayersCmd())

	return rootCmd
}

// Execute runs the root command. Without a subcommand the server starts.
func Execute() {
	root := NewRootCmd()
	if len(os.Args) == 1 {
		root.SetArgs([]string{"serve"})
	}
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
