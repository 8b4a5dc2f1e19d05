package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"vendorbid/internal/events"
)

var notifyWorkerCmd = &cobra.Command{
	Use:   "notify-worker",
	Short: "Consume bid.awarded events and log a notification for each",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.RabbitMQURL == "" {
			return errors.New("RABBITMQ_URL env variable is not set")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log := logger.With().Str("component", "notify-worker").Logger()
		log.Info().Str("queue", events.BidAwardedQueue).Msg("waiting for events")

		err := events.ConsumeBidAwarded(ctx, cfg.RabbitMQURL, log, func(ctx context.Context, e events.BidAwarded) error {
			log.Info().
				Str("event_id", e.EventID).
				Int64("requirement_id", e.RequirementID).
				Str("requirement_title", e.RequirementTitle).
				Int64("supplier_id", e.SupplierID).
				Int64("bid_id", e.BidID).
				Str("amount", e.Amount.String()).
				Msg("supplier notified about awarded bid")
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
