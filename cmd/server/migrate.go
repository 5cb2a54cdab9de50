package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/campusledger/backend/internal/config"
	"github.com/campusledger/backend/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the ledger tables and seed voucher types",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load(cfgFile)

		db, err := database.InitDB(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}

		log.Println("[MIGRATE] Schema is up to date")
		return nil
	},
}
