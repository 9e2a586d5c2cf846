package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/hh-matcher/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Run: func(cmd *cobra.Command, _ []string) {
		d := setup(cmd.Context(), false, false)
		defer d.close()

		dsn, err := resolveDSN(d.config.Database)
		if err != nil {
			d.logger.Fatal("loading database dsn", zap.Error(err))
		}

		if err := store.Migrate(dsn, d.logger); err != nil {
			d.logger.Fatal("migrating the database", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
