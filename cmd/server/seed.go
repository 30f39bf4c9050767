package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"portfolio-site-api/internal/config"
	"portfolio-site-api/internal/database"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Migrate the database and insert default settings sections",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := config.Load(configPaths()...)
		if err != nil {
			return err
		}
		db, err := database.Open(cfg.Database, cfg.Server.LogLevel)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, sqlDB.Close()) }()

		if err := database.Migrate(db); err != nil {
			return err
		}
		created, err := database.SeedSettings(cmd.Context(), db)
		if err != nil {
			return err
		}
		if len(created) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "all settings sections already present")
			return nil
		}
		for _, key := range created {
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %s\n", key)
		}
		return nil
	},
}
