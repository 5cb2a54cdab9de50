package main

import (
	"os"

	"github.com/spf13/cobra"
)

// @title Campus Ledger API
// @version 1.0
// @description Double-entry ledger and chart of accounts for school administration
// @host localhost:8080
// @BasePath /
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "campus-ledger",
	Short: "Ledger posting and chart of accounts backend",
	Long: `campus-ledger serves the accounts and ledger REST API of the school
administration system.

Example:
  campus-ledger migrate
  campus-ledger serve --config .env`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".env", "config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
