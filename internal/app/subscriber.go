package app

import (
	"context"
	"errors"

	"github.com/nerrad567/kobayashi-signals/internal/consumer"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/config"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/logging"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/metrics"
)

// RunSubscriber connects as the subscriber and processes inbound messages
// until ctx is cancelled. The subscription is issued by the session
// dispatcher once the broker accepts the connection.
//
// Returns:
//   - error: A setup failure (credentials, TLS, connection); nil otherwise
func RunSubscriber(ctx context.Context, cfg *config.Config, logger *logging.Logger, version string) error {
	rec := metrics.New(string(cfg.Role))
	loop := consumer.New(logger, rec)

	rt, err := start(ctx, cfg, logger, version, rec, loop.Handler())
	if errors.Is(err, errInterrupted) {
		logger.Info("Subscriber terminated by user")
		return nil
	}
	if err != nil {
		return err
	}
	defer rt.close()

	logger.Info("Waiting for messages. Press Ctrl+C to exit.")
	if err := loop.Run(ctx); err != nil {
		logger.Error("Error", "error", err)
	}
	logger.Info("Subscriber terminated by user")

	return nil
}
