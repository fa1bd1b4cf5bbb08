package app

import (
	"context"
	"errors"

	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/config"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/logging"
	"github.com/nerrad567/kobayashi-signals/internal/infrastructure/metrics"
	"github.com/nerrad567/kobayashi-signals/internal/producer"
)

// RunPublisher connects as the publisher and sends one message per interval
// until ctx is cancelled.
//
// Returns:
//   - error: A setup failure (credentials, TLS, connection); nil otherwise
func RunPublisher(ctx context.Context, cfg *config.Config, logger *logging.Logger, version string) error {
	rec := metrics.New(string(cfg.Role))

	rt, err := start(ctx, cfg, logger, version, rec, nil)
	if errors.Is(err, errInterrupted) {
		logger.Info("Publisher terminated by user")
		return nil
	}
	if err != nil {
		return err
	}
	defer rt.close()

	loop := producer.New(producer.Config{
		Topic:    cfg.Topic,
		Interval: cfg.GetInterval(),
	}, rt.client, logger, rec)

	err = loop.Run(ctx)
	switch {
	case errors.Is(err, producer.ErrLoopAborted):
		logger.Error("Error", "error", err)
	case ctx.Err() != nil:
		logger.Info("Publisher terminated by user", "messages_sent", loop.Sent())
	}

	return nil
}
