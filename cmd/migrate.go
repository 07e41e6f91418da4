package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"infinixai/internal/infrastructure"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		pg, err := infrastructure.NewPostgresClient(cmd.Context(), cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.Migrate(); err != nil {
			return err
		}
		logrus.Info("[DB] Migrations applied")
		return nil
	},
}
