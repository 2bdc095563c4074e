package cli

import (
	"pokernight/internal/config"
	"pokernight/internal/repo"
	"pokernight/pkg/logger"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := repo.InitDB(config.GlobalConfig.Database.DSN); err != nil {
				return err
			}
			logger.Log.Info("migration complete")
			return nil
		},
	}
}
