package main

import (
	"context"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vendorbid/db"
	"vendorbid/internal/config"
	"vendorbid/internal/logging"
)

var (
	cfg    *config.Config
	logger zerolog.Logger
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(createAdminCmd)
	rootCmd.AddCommand(notifyWorkerCmd)
}

var rootCmd = &cobra.Command{
	Use:   "vendorbid",
	Short: "Marketplace API where vendors post material requirements and suppliers bid on them",
	// конфигурация нужна всем подкомандам
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return err
		}
		l, err := logging.New(c.LogFormat, c.LogLevel, os.Stderr)
		if err != nil {
			return err
		}
		cfg = c
		logger = l.With().Timestamp().Str("env", c.Env).Logger()
		return nil
	},
	SilenceUsage: true,
}

func connectDB(ctx context.Context) (*sqlx.DB, error) {
	conn, err := db.Connect(ctx, cfg.PostgresConn)
	if err != nil {
		return nil, err
	}
	logger.Debug().Msg("connected to postgres")
	return conn, nil
}
