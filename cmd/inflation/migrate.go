package main

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/trogers1052/grocery-inflation/internal/config"
	"github.com/trogers1052/grocery-inflation/internal/database"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			down, _ := cmd.Flags().GetInt("down")

			db, err := database.New(cfg.Database.ConnectionString())
			if err != nil {
				return err
			}
			defer db.Close()

			if down > 0 {
				if err := db.MigrateDown(cfg.Database.MigrationsDir, down); err != nil {
					return err
				}
				log.Printf("Rolled back %d migration(s)", down)
				return nil
			}

			if err := db.MigrateUp(cfg.Database.MigrationsDir); err != nil {
				return err
			}
			log.Println("Migrations applied")
			return nil
		},
	}

	cmd.Flags().Int("down", 0, "Roll back this many migrations instead of applying")

	return cmd
}
