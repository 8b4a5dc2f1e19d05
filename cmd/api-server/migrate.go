package main

import (
	"github.com/spf13/cobra"

	"vendorbid/db/migrations"
)

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := migrations.Run(conn.DB); err != nil {
			return err
		}
		version, err := migrations.Version(conn.DB)
		if err != nil {
			return err
		}
		logger.Info().Int64("version", version).Msg("migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		if err := migrations.Down(conn.DB); err != nil {
			return err
		}
		logger.Info().Msg("latest migration rolled back")
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()
		return migrations.Status(conn.DB)
	},
}
