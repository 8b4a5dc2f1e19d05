package main

import (
	"github.com/spf13/cobra"

	"vendorbid/db"
	"vendorbid/internal/market"
)

var (
	adminEmail    string
	adminPassword string
	adminName     string
)

func init() {
	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "admin email")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "admin password, at least 6 characters")
	createAdminCmd.Flags().StringVar(&adminName, "name", "Administrator", "admin display name")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}

// Администратора нельзя зарегистрировать через API, только этой командой
var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		svc := market.NewService(db.NewStorage(conn),
			market.WithLogger(logger),
			market.WithPasswordCost(cfg.BcryptCost),
		)
		u, err := svc.CreateAdmin(cmd.Context(), adminEmail, adminPassword, adminName)
		if err != nil {
			return err
		}
		logger.Info().Int64("user_id", u.ID).Str("email", u.Email).Msg("admin created")
		return nil
	},
}
