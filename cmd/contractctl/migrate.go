package main

import (
	"github.com/spf13/cobra"

	"github.com/phonginreallife/contracthub/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return db.Migrate(cmd.Context(), app.pg)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
